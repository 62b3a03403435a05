// Package category suggests a shopping category for a product name.
package category

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/homeledger/internal/inventory"
)

const (
	Produce      = "Hortifruti"
	Dairy        = "Laticínios"
	Meat         = "Carnes e Peixes"
	Bakery       = "Padaria"
	Pantry       = "Mercearia"
	Frozen       = "Congelados"
	Beverages    = "Bebidas"
	Snacks       = "Lanches"
	Cleaning     = "Limpeza"
	PersonalCare = "Higiene"
)

// Suggest returns the category for name. Matching ignores case and
// accents: exact names first, then keywords contained in the name. Names
// that match nothing get the inventory default.
func Suggest(name string) string {
	key := fold(name)
	if key == "" {
		return inventory.DefaultCategory
	}

	if cat, ok := exactMatch[key]; ok {
		return cat
	}
	for _, entry := range keywordMatches {
		if strings.Contains(key, entry.keyword) {
			return entry.category
		}
	}
	return inventory.DefaultCategory
}

// fold lowercases s, strips diacritics and collapses spaces.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

// Keys are folded.
var exactMatch = map[string]string{
	// Hortifruti
	"banana":   Produce,
	"maca":     Produce,
	"laranja":  Produce,
	"limao":    Produce,
	"abacate":  Produce,
	"tomate":   Produce,
	"batata":   Produce,
	"cebola":   Produce,
	"alho":     Produce,
	"alface":   Produce,
	"cenoura":  Produce,
	"pepino":   Produce,
	"mamao":    Produce,
	"manga":    Produce,
	"uva":      Produce,
	"morango":  Produce,
	"abacaxi":  Produce,
	"melancia": Produce,
	"couve":    Produce,
	"brocolis": Produce,

	// Laticínios
	"leite":          Dairy,
	"ovos":           Dairy,
	"manteiga":       Dairy,
	"queijo":         Dairy,
	"iogurte":        Dairy,
	"requeijao":      Dairy,
	"creme de leite": Dairy,

	// Carnes e Peixes
	"frango":   Meat,
	"carne":    Meat,
	"picanha":  Meat,
	"linguica": Meat,
	"bacon":    Meat,
	"presunto": Meat,
	"peixe":    Meat,
	"salmao":   Meat,
	"camarao":  Meat,
	"atum":     Meat,

	// Padaria
	"pao":          Bakery,
	"pao de forma": Bakery,
	"bisnaguinha":  Bakery,
	"bolo":         Bakery,

	// Mercearia
	"arroz":           Pantry,
	"feijao":          Pantry,
	"macarrao":        Pantry,
	"farinha":         Pantry,
	"acucar":          Pantry,
	"sal":             Pantry,
	"oleo":            Pantry,
	"azeite":          Pantry,
	"cafe":            Pantry,
	"molho de tomate": Pantry,

	// Bebidas
	"agua":         Beverages,
	"suco":         Beverages,
	"refrigerante": Beverages,
	"cerveja":      Beverages,
	"vinho":        Beverages,

	// Limpeza
	"detergente":     Cleaning,
	"sabao em po":    Cleaning,
	"amaciante":      Cleaning,
	"desinfetante":   Cleaning,
	"agua sanitaria": Cleaning,
	"esponja":        Cleaning,

	// Higiene
	"sabonete":        PersonalCare,
	"shampoo":         PersonalCare,
	"condicionador":   PersonalCare,
	"pasta de dente":  PersonalCare,
	"papel higienico": PersonalCare,
	"desodorante":     PersonalCare,
}

type keywordEntry struct {
	keyword  string
	category string
}

// Ordered with longer, more specific keywords first.
var keywordMatches = []keywordEntry{
	{"papel higienico", PersonalCare},
	{"pasta de dente", PersonalCare},
	{"escova de dente", PersonalCare},
	{"agua sanitaria", Cleaning},
	{"sabao em po", Cleaning},
	{"creme de leite", Dairy},
	{"leite condensado", Pantry},
	{"molho de tomate", Pantry},
	{"pao de queijo", Frozen},
	{"peito de frango", Meat},
	{"carne moida", Meat},
	{"sorvete", Frozen},
	{"congelad", Frozen},
	{"pizza", Frozen},
	{"refrigerante", Beverages},
	{"cerveja", Beverages},
	{"suco", Beverages},
	{"agua", Beverages},
	{"vinho", Beverages},
	{"biscoito", Snacks},
	{"bolacha", Snacks},
	{"chocolate", Snacks},
	{"salgadinho", Snacks},
	{"pipoca", Snacks},
	{"detergente", Cleaning},
	{"desinfetante", Cleaning},
	{"amaciante", Cleaning},
	{"limpa", Cleaning},
	{"sabonete", PersonalCare},
	{"shampoo", PersonalCare},
	{"desodorante", PersonalCare},
	{"iogurte", Dairy},
	{"queijo", Dairy},
	{"leite", Dairy},
	{"manteiga", Dairy},
	{"ovo", Dairy},
	{"frango", Meat},
	{"carne", Meat},
	{"linguica", Meat},
	{"peixe", Meat},
	{"pao", Bakery},
	{"bolo", Bakery},
	{"arroz", Pantry},
	{"feijao", Pantry},
	{"macarrao", Pantry},
	{"farinha", Pantry},
	{"tempero", Pantry},
	{"molho", Pantry},
	{"enlatad", Pantry},
	{"fruta", Produce},
	{"verdura", Produce},
	{"legume", Produce},
	{"tomate", Produce},
	{"batata", Produce},
	{"cebola", Produce},
	{"banana", Produce},
}
