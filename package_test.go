package sqlnamed_test

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlnamed"
)

type PackageSuite struct{}

var _ = Suite(&PackageSuite{})

func setupDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: opens its own database.
	db.SetMaxOpenConns(1)
	return db, nil
}

func createExampleDB(createTables string, inserts []string) (*sql.DB, error) {
	db, err := setupDB()
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(createTables)
	if err != nil {
		return nil, err
	}
	for _, insert := range inserts {
		_, err := db.Exec(insert)
		if err != nil {
			return nil, err
		}
	}

	return db, nil
}

type Person struct {
	ID         int    `db:"id"`
	Fullname   string `db:"name"`
	PostalCode int    `db:"address_id"`
}

type Address struct {
	ID       int     `db:"id"`
	District string  `db:"district"`
	Street   *string `db:"street"`
}

func personAndAddressDB(c *C) *sql.DB {
	createTables := `
CREATE TABLE person (
	name text,
	id integer,
	address_id integer,
	email text
);
CREATE TABLE address (
	id integer,
	district text,
	street text
);
`
	inserts := []string{
		"INSERT INTO person VALUES ('Fred', 30, 1000, 'fred@email.com');",
		"INSERT INTO person VALUES ('Mark', 20, 1500, 'mark@email.com');",
		"INSERT INTO person VALUES ('Mary', 40, 3500, 'mary@email.com');",
		"INSERT INTO person VALUES ('James', 35, 4500, NULL);",
		"INSERT INTO address VALUES (1000, 'Happy Land', 'Main Street');",
		"INSERT INTO address VALUES (1500, 'Sad World', NULL);",
		"INSERT INTO address VALUES (3500, NULL, 'Station Lane');",
	}

	db, err := createExampleDB(createTables, inserts)
	c.Assert(err, IsNil)
	return db
}

func strPtr(s string) *string {
	return &s
}

func (s *PackageSuite) TestQueryAs(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	p, err := sqlnamed.QueryAs[Person](ctx, db, "SELECT id, name, address_id FROM person WHERE id = $1", 30).One()
	c.Assert(err, IsNil)
	c.Check(p, Equals, Person{ID: 30, Fullname: "Fred", PostalCode: 1000})

	// Columns may come in any order and leave fields unset.
	people, err := sqlnamed.QueryAs[Person](ctx, db, "SELECT name, id FROM person WHERE id > $1 ORDER BY id", 25).All()
	c.Assert(err, IsNil)
	c.Check(people, DeepEquals, []Person{{ID: 30, Fullname: "Fred"}, {ID: 35, Fullname: "James"}, {ID: 40, Fullname: "Mary"}})

	// NULL is decoded into the zero value or a nil pointer.
	addresses, err := sqlnamed.QueryAs[Address](ctx, db, "SELECT id, district, street FROM address ORDER BY id").All()
	c.Assert(err, IsNil)
	c.Check(addresses, DeepEquals, []Address{
		{ID: 1000, District: "Happy Land", Street: strPtr("Main Street")},
		{ID: 1500, District: "Sad World"},
		{ID: 3500, Street: strPtr("Station Lane")},
	})
}

func (s *PackageSuite) TestQueryAsErrors(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	var tests = []struct {
		summary string
		query   string
		err     string
	}{{
		summary: "unknown column",
		query:   "SELECT id, name, email FROM person",
		err:     `column "email" not found in sqlnamed_test.Person, have tags: address_id, id, name`,
	}, {
		summary: "repeated column",
		query:   "SELECT id, name, id FROM person",
		err:     `column "id" appears more than once in results`,
	}, {
		summary: "unknown column without rows",
		query:   "SELECT id, email FROM person WHERE id = 0",
		err:     `column "email" not found in sqlnamed_test.Person, have tags: address_id, id, name`,
	}}

	for i, t := range tests {
		_, err := sqlnamed.QueryAs[Person](ctx, db, t.query).All()
		c.Check(err, ErrorMatches, t.err, Commentf("test %d failed (%s)", i, t.summary))
	}

	_, err := sqlnamed.QueryAs[int](ctx, db, "SELECT id FROM person").All()
	c.Check(err, ErrorMatches, "need struct type, got int")
}

func (s *PackageSuite) TestQueryAsUnchecked(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	// Unknown columns are ignored.
	p, err := sqlnamed.QueryAsUnchecked[Person](ctx, db, "SELECT id, name, email FROM person WHERE id = $1", 20).One()
	c.Assert(err, IsNil)
	c.Check(p, Equals, Person{ID: 20, Fullname: "Mark"})

	// The last of the repeated columns wins.
	p, err = sqlnamed.QueryAsUnchecked[Person](ctx, db, "SELECT id, name, 'Other' AS name FROM person WHERE id = $1", 20).One()
	c.Assert(err, IsNil)
	c.Check(p, Equals, Person{ID: 20, Fullname: "Other"})
}

func (s *PackageSuite) TestQueryScalar(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	name, err := sqlnamed.QueryScalar[string](ctx, db, "SELECT name FROM person WHERE id = $1", 40).One()
	c.Assert(err, IsNil)
	c.Check(name, Equals, "Mary")

	ids, err := sqlnamed.QueryScalar[int64](ctx, db, "SELECT id FROM person ORDER BY id").All()
	c.Assert(err, IsNil)
	c.Check(ids, DeepEquals, []int64{20, 30, 35, 40})

	// NULL becomes the zero value, or nil for pointers.
	email, err := sqlnamed.QueryScalar[string](ctx, db, "SELECT email FROM person WHERE id = $1", 35).One()
	c.Assert(err, IsNil)
	c.Check(email, Equals, "")
	emailPtr, err := sqlnamed.QueryScalar[*string](ctx, db, "SELECT email FROM person WHERE id = $1", 35).One()
	c.Assert(err, IsNil)
	c.Check(emailPtr, IsNil)
	var nullName sql.NullString
	nullName, err = sqlnamed.QueryScalar[sql.NullString](ctx, db, "SELECT email FROM person WHERE id = $1", 30).One()
	c.Assert(err, IsNil)
	c.Check(nullName, Equals, sql.NullString{String: "fred@email.com", Valid: true})

	_, err = sqlnamed.QueryScalar[int](ctx, db, "SELECT id, name FROM person").One()
	c.Check(err, ErrorMatches, "expected 1 column in results, got 2")

	// Unchecked scalar queries take the first column.
	id, err := sqlnamed.QueryScalarUnchecked[int](ctx, db, "SELECT id, name FROM person WHERE name = $1", "James").One()
	c.Assert(err, IsNil)
	c.Check(id, Equals, 35)
}

func (s *PackageSuite) TestQueryRows(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	rows, err := sqlnamed.Query(ctx, db, "SELECT id, name FROM person WHERE id < $1 ORDER BY id", 35).All()
	c.Assert(err, IsNil)
	c.Check(rows, DeepEquals, []sqlnamed.Row{
		{"id": int64(20), "name": "Mark"},
		{"id": int64(30), "name": "Fred"},
	})

	_, err = sqlnamed.Query(ctx, db, "SELECT id, name, id FROM person").All()
	c.Check(err, ErrorMatches, `column "id" appears more than once in results`)

	row, err := sqlnamed.QueryUnchecked(ctx, db, "SELECT id, name, 'X' AS id FROM person WHERE id = $1", 20).One()
	c.Assert(err, IsNil)
	c.Check(row, DeepEquals, sqlnamed.Row{"id": "X", "name": "Mark"})
}

func (s *PackageSuite) TestErrNoRows(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	_, err := sqlnamed.QueryAs[Person](ctx, db, "SELECT id FROM person WHERE id = $1", 1).One()
	c.Check(err, Equals, sqlnamed.ErrNoRows)
	_, err = sqlnamed.QueryScalar[int](ctx, db, "SELECT id FROM person WHERE id = $1", 1).One()
	c.Check(err, Equals, sqlnamed.ErrNoRows)
	_, err = sqlnamed.Query(ctx, db, "SELECT id FROM person WHERE id = $1", 1).One()
	c.Check(err, Equals, sqlnamed.ErrNoRows)

	// All does not treat an empty result as an error.
	people, err := sqlnamed.QueryAs[Person](ctx, db, "SELECT id FROM person WHERE id = $1", 1).All()
	c.Assert(err, IsNil)
	c.Check(people, HasLen, 0)
}

func (s *PackageSuite) TestRunAndExec(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	q := sqlnamed.Query(ctx, db, "INSERT INTO person (name, id, address_id) VALUES ($1, $2, $3)", "Jim", 50, 1500)
	c.Check(q.SQL(), Equals, "INSERT INTO person (name, id, address_id) VALUES ($1, $2, $3)")
	c.Check(q.Args(), DeepEquals, []any{"Jim", 50, 1500})
	c.Assert(q.Run(), IsNil)

	res, err := sqlnamed.Query(ctx, db, "DELETE FROM person WHERE address_id = $1", 1500).Exec()
	c.Assert(err, IsNil)
	n, err := res.RowsAffected()
	c.Assert(err, IsNil)
	c.Check(n, Equals, int64(2))
}

func (s *PackageSuite) TestIterMethodOrder(c *C) {
	db := personAndAddressDB(c)
	defer db.Close()
	ctx := context.Background()

	iter := sqlnamed.QueryScalar[int](ctx, db, "SELECT id FROM person ORDER BY id").Iter()
	_, err := iter.Get()
	c.Check(err, ErrorMatches, "cannot get result: cannot call Get before Next")

	var ids []int
	for iter.Next() {
		id, err := iter.Get()
		c.Assert(err, IsNil)
		ids = append(ids, id)
	}
	c.Assert(iter.Close(), IsNil)
	c.Check(ids, DeepEquals, []int{20, 30, 35, 40})

	_, err = iter.Get()
	c.Check(err, ErrorMatches, "cannot get result: iteration ended")
	c.Check(iter.Next(), Equals, false)
	c.Check(iter.Close(), IsNil)

	// Errors running the query are returned by Close.
	iter = sqlnamed.QueryScalar[int](ctx, db, "SELECT id FROM nowhere").Iter()
	c.Check(iter.Next(), Equals, false)
	c.Check(iter.Close(), ErrorMatches, "no such table: nowhere")
}

func (s *PackageSuite) TestDBAndTX(c *C) {
	sqldb := personAndAddressDB(c)
	db := sqlnamed.NewDB(sqldb)
	defer db.Close()
	ctx := context.Background()

	c.Check(db.PlainDB(), Equals, sqldb)

	tx, err := db.Begin(ctx, nil)
	c.Assert(err, IsNil)
	err = sqlnamed.Query(ctx, tx, "UPDATE person SET name = $1 WHERE id = $2", "Frederick", 30).Run()
	c.Assert(err, IsNil)
	c.Assert(tx.Commit(), IsNil)

	name, err := sqlnamed.QueryScalar[string](ctx, db, "SELECT name FROM person WHERE id = $1", 30).One()
	c.Assert(err, IsNil)
	c.Check(name, Equals, "Frederick")

	tx, err = db.Begin(ctx, &sqlnamed.TXOptions{ReadOnly: false})
	c.Assert(err, IsNil)
	err = sqlnamed.Query(ctx, tx, "DELETE FROM person").Run()
	c.Assert(err, IsNil)
	c.Assert(tx.Rollback(), IsNil)

	n, err := sqlnamed.QueryScalar[int](ctx, db, "SELECT count(*) FROM person").One()
	c.Assert(err, IsNil)
	c.Check(n, Equals, 4)
}
