// Package example shows the queries of a small office directory declared
// with sqlnamed directives. The functions are generated in sqlnamed_gen.go.
package example

import (
	"context"
	"fmt"
	"io"

	"github.com/canonical/sqlnamed"
)

//go:generate go run github.com/canonical/sqlnamed/cmd/sqlnamed

type Location struct {
	ID   int    `db:"room_id"`
	Name string `db:"name"`
	Team string `db:"team"`
}

type Person struct {
	Name string `db:"name"`
	ID   int    `db:"id"`
	Team string `db:"team"`
}

//sqlnamed CreatePerson() query("CREATE TABLE person (name text, id integer, team text)")
//sqlnamed CreateLocation() query("CREATE TABLE location (room_id integer, name text, team text)")

//sqlnamed InsertPerson(p Person) query(
//	"INSERT INTO person (name, id, team) VALUES ($Name, $ID, $Team)",
//	..p{.Name, .ID, .Team})

//sqlnamed InsertLocation(l Location) query(
//	"INSERT INTO location (room_id, name, team) VALUES ($room_id, $name, $team)",
//	..l{room_id = .ID, name = .Name, team = .Team})

// Engineer finds someone on the engineering team.
//
//sqlnamed Engineer() query_as(Person, "SELECT name, id, team FROM person WHERE team = 'engineering' ORDER BY id")

//sqlnamed PersonByID(id int) query_as_unchecked(Person, "SELECT * FROM person WHERE id = $1", id as int64)

//sqlnamed TeamMembers(team string) query_file_as(Person, "example/queries/team_members.sql", team)

//sqlnamed TeamSize(l Location) query_scalar(int, "SELECT count(*) FROM person WHERE team = $team", team = l.Team)

//sqlnamed PeopleAndRooms() query_unchecked(`
//	SELECT l.name AS room, p.name, p.team
//	FROM location AS l
//	JOIN person AS p ON p.team = l.team
//	ORDER BY p.id`)

var people = []Person{
	{"Ed", 2, "engineering"},
	{"Alastair", 1, "engineering"},
	{"Marco", 3, "engineering"},
	{"Pedro", 4, "management"},
	{"Serdar", 5, "presentation engineering"},
	{"Joe", 6, "marketing"},
	{"Ben", 7, "legal"},
	{"Sam", 8, "hr"},
	{"Paul", 9, "sales"},
	{"Mark", 10, "leadership"},
	{"Gustavo", 11, "leadership"},
}

var locations = []Location{
	{1, "Basement", "engineering"},
	{34, "Floor 2", "presentation engineering"},
	{19, "Floor 3", "management"},
	{66, "The Market", "marketing"},
	{7, "Court", "legal"},
	{9, "Floors 4 to 89", "hr"},
	{73, "Bar", "Sales"},
	{32, "Penthouse", "leadership"},
}

// Run fills the directory and prints a tour of it to w.
func Run(ctx context.Context, q sqlnamed.Querier, w io.Writer) error {
	for _, create := range []*sqlnamed.RowQuery{CreatePerson(ctx, q), CreateLocation(ctx, q)} {
		if err := create.Run(); err != nil {
			return err
		}
	}
	for _, p := range people {
		if err := InsertPerson(ctx, q, p).Run(); err != nil {
			return err
		}
	}
	for _, l := range locations {
		if err := InsertLocation(ctx, q, l).Run(); err != nil {
			return err
		}
	}

	pal, err := Engineer(ctx, q).One()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s is on the engineering team.\n", pal.Name)

	p, err := PersonByID(ctx, q, 4).One()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Person 4 is %s from %s.\n", p.Name, p.Team)

	members, err := TeamMembers(ctx, q, locations[0].Team).All()
	if err != nil {
		return err
	}
	for _, m := range members {
		fmt.Fprintf(w, "%s, ", m.Name)
	}
	fmt.Fprintf(w, "are in the %s.\n", locations[0].Name)

	n, err := TeamSize(ctx, q, locations[7]).One()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d people are in the %s.\n", n, locations[7].Name)

	iter := PeopleAndRooms(ctx, q).Iter()
	for iter.Next() {
		row, err := iter.Get()
		if err != nil {
			iter.Close()
			return err
		}
		fmt.Fprintf(w, "%s is in %s\n", row["name"], row["room"])
	}
	return iter.Close()
}
