package generators

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-faker/faker/v4"
	"github.com/mmrzaf/mockagen/internal/domain"
)

// Faker yields realistic-looking text of one kind. Apart from "city", the
// faker library draws from its own random source, so these values are not
// reproduced by seeded runs.
type Faker struct {
	Kind string
}

var fakerKinds = map[string]func(rng *rand.Rand) string{
	"name":       func(*rand.Rand) string { return faker.Name() },
	"first_name": func(*rand.Rand) string { return faker.FirstName() },
	"last_name":  func(*rand.Rand) string { return faker.LastName() },
	"email":      func(*rand.Rand) string { return faker.Email() },
	"username":   func(*rand.Rand) string { return faker.Username() },
	"word":       func(*rand.Rand) string { return faker.Word() },
	"sentence":   func(*rand.Rand) string { return faker.Sentence() },
	"paragraph":  func(*rand.Rand) string { return faker.Paragraph() },
	"phone":      func(*rand.Rand) string { return faker.Phonenumber() },
	"url":        func(*rand.Rand) string { return faker.URL() },
	"ipv4":       func(*rand.Rand) string { return faker.IPv4() },
	"domain":     func(*rand.Rand) string { return faker.DomainName() },
	"city":       func(rng *rand.Rand) string { return cities[rng.Intn(len(cities))] },
}

var cities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
	"Austin", "Jacksonville", "Fort Worth", "Columbus", "Charlotte",
	"San Francisco", "Indianapolis", "Seattle", "Denver", "Washington",
	"Boston", "Nashville", "Detroit", "Portland", "Las Vegas",
	"London", "Paris", "Tokyo", "Berlin", "Madrid",
	"Rome", "Amsterdam", "Vienna", "Prague", "Barcelona",
	"Munich", "Milan", "Stockholm", "Copenhagen", "Oslo",
}

func NewFaker(kind string) (*Faker, error) {
	if _, ok := fakerKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown faker kind %q (known: %v)", ErrInvalidDefinition, kind, FakerKinds())
	}
	return &Faker{Kind: kind}, nil
}

// FakerKinds lists the supported faker kinds in sorted order.
func FakerKinds() []string {
	kinds := make([]string, 0, len(fakerKinds))
	for k := range fakerKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (g *Faker) generate(rng *rand.Rand) domain.Value {
	return domain.StringValue(fakerKinds[g.Kind](rng))
}
