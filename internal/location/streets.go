// Package location detects whether scraped content mentions a known premium
// retail street for a given city, and converts the street tier to a bounded
// location score.
package location

// street pairs a premium street name with its prestige tier:
// 1 ultra-premium, 2 premium, 3 high-end.
type street struct {
	name string
	tier int
}

// premiumStreets maps a normalized city key to its known premium streets,
// in declaration order. First match wins during detection.
var premiumStreets = map[string][]street{
	// United Kingdom
	"london": {
		{"new bond street", 1},
		{"old bond street", 1},
		{"savile row", 1},
		{"mount street", 1},
		{"regent street", 2},
		{"jermyn street", 2},
		{"sloane street", 2},
		{"knightsbridge", 2},
		{"brompton road", 2},
		{"burlington arcade", 2},
		{"covent garden", 3},
		{"kings road", 3},
		{"marylebone high street", 3},
		{"south molton street", 3},
	},
	"manchester": {
		{"king street", 2},
		{"spinningfields", 2},
		{"st ann's square", 2},
	},
	"edinburgh": {
		{"george street", 2},
		{"multrees walk", 2},
		{"princes street", 3},
	},

	// France
	"paris": {
		{"avenue montaigne", 1},
		{"rue du faubourg saint-honoré", 1},
		{"place vendôme", 1},
		{"rue saint-honoré", 1},
		{"champs-élysées", 2},
		{"boulevard haussmann", 2},
		{"rue de la paix", 2},
		{"le marais", 3},
		{"saint-germain-des-prés", 3},
	},

	// Italy
	"milan": {
		{"via montenapoleone", 1},
		{"via della spiga", 1},
		{"galleria vittorio emanuele", 1},
		{"corso venezia", 2},
		{"via sant'andrea", 2},
	},
	"rome": {
		{"via condotti", 1},
		{"via del corso", 2},
		{"via borgognona", 2},
	},
	"florence": {
		{"via de' tornabuoni", 1},
		{"via della vigna nuova", 2},
	},

	// Spain
	"madrid": {
		{"calle serrano", 1},
		{"calle josé ortega y gasset", 1},
		{"barrio de salamanca", 2},
		{"gran vía", 3},
	},
	"barcelona": {
		{"passeig de gràcia", 1},
		{"la rambla", 3},
		{"diagonal", 3},
	},

	// Portugal
	"lisbon": {
		{"avenida da liberdade", 1},
		{"chiado", 2},
		{"príncipe real", 3},
	},
	"porto": {
		{"avenida dos aliados", 2},
		{"rua santa catarina", 3},
	},

	// Germany
	"berlin": {
		{"kurfürstendamm", 2},
		{"friedrichstraße", 2},
	},
	"munich": {
		{"maximilianstraße", 1},
		{"theatinerstraße", 2},
	},
	"düsseldorf": {
		{"königsallee", 1},
	},

	// United States
	"new york": {
		{"fifth avenue", 1},
		{"madison avenue", 1},
		{"57th street", 1},
		{"soho", 2},
		{"bleecker street", 3},
		{"tribeca", 3},
	},
	"los angeles": {
		{"rodeo drive", 1},
		{"beverly hills", 2},
		{"melrose avenue", 3},
	},
	"chicago": {
		{"magnificent mile", 1},
		{"oak street", 2},
	},
	"miami": {
		{"design district", 2},
		{"bal harbour", 2},
	},
	"boston": {
		{"newbury street", 2},
		{"back bay", 3},
	},
	"san francisco": {
		{"union square", 2},
	},

	// Austria
	"vienna": {
		{"kohlmarkt", 1},
		{"graben", 2},
		{"kärntner straße", 2},
	},

	// Belgium
	"brussels": {
		{"avenue louise", 2},
		{"boulevard de waterloo", 2},
	},
	"antwerp": {
		{"meir", 2},
		{"schuttershofstraat", 2},
	},

	// Czech Republic
	"prague": {
		{"pařížská", 1},
		{"na příkopě", 2},
	},

	// Switzerland
	"zurich": {
		{"bahnhofstrasse", 1},
	},
	"geneva": {
		{"rue du rhône", 1},
	},

	// Netherlands
	"amsterdam": {
		{"p.c. hooftstraat", 1},
		{"van baerlestraat", 2},
	},

	// South America
	"são paulo": {
		{"rua oscar freire", 1},
		{"jardins", 2},
	},
	"buenos aires": {
		{"avenida alvear", 1},
		{"recoleta", 2},
	},
	"bogota": {
		{"zona rosa", 2},
		{"usaquén", 3},
	},
	"lima": {
		{"miraflores", 2},
		{"san isidro", 2},
	},

	// Africa
	"luanda": {
		{"marginal", 2},
		{"talatona", 3},
	},
}
