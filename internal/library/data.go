// Package library holds the "bibliotheque" sample dataset and the scenarios
// that walk through the query engine with it: collection management,
// inserts, reads, filters, updates, array operators and deletes.
package library

import (
	"time"

	"github.com/skshohagmiah/docquery/internal/document"
)

// Collection names
const (
	Livres   = "livres"
	Membres  = "membres"
	Emprunts = "emprunts"
)

// MembresSchema is the JSON Schema enforced on the membres collection.
const MembresSchema = `{
	"type": "object",
	"required": ["nom", "prenom", "email"],
	"properties": {
		"nom": {
			"type": "string",
			"description": "Le nom doit être une chaîne de caractères et est obligatoire"
		},
		"prenom": {
			"type": "string",
			"description": "Le prénom doit être une chaîne de caractères et est obligatoire"
		},
		"email": {
			"type": "string",
			"pattern": "^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}$",
			"description": "Email doit être valide et est obligatoire"
		},
		"dateInscription": {
			"type": "string",
			"format": "date-time",
			"description": "Date d'inscription"
		}
	}
}`

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// PetitPrince is the book inserted on its own before the batch.
func PetitPrince() document.Document {
	return document.Document{
		"titre":             "Le Petit Prince",
		"auteur":            "Antoine de Saint-Exupéry",
		"anneePublication":  1943,
		"genre":             "Fiction",
		"isbn":              "978-2-07-061275-8",
		"disponible":        true,
		"nombreExemplaires": 3,
		"emplacements":      []interface{}{"Rayon A", "Rayon B"},
	}
}

// LivresBatch returns the books inserted together after PetitPrince.
func LivresBatch() []document.Document {
	return []document.Document{
		{
			"titre":             "1984",
			"auteur":            "George Orwell",
			"anneePublication":  1949,
			"genre":             "Science-fiction",
			"isbn":              "978-0-452-28423-4",
			"disponible":        true,
			"nombreExemplaires": 2,
		},
		{
			"titre":             "Les Misérables",
			"auteur":            "Victor Hugo",
			"anneePublication":  1862,
			"genre":             "Roman",
			"isbn":              "978-2-253-09633-4",
			"disponible":        true,
			"nombreExemplaires": 4,
		},
		{
			"titre":             "Harry Potter à l'école des sorciers",
			"auteur":            "J.K. Rowling",
			"anneePublication":  1997,
			"genre":             "Fantasy",
			"isbn":              "978-2-07-054120-6",
			"disponible":        false,
			"nombreExemplaires": 5,
		},
		{
			"titre":             "Le Seigneur des Anneaux",
			"auteur":            "J.R.R. Tolkien",
			"anneePublication":  1954,
			"genre":             "Fantasy",
			"isbn":              "978-2-266-15410-5",
			"disponible":        true,
			"nombreExemplaires": 3,
		},
	}
}

// MembresSeed returns the library members.
func MembresSeed() []document.Document {
	return []document.Document{
		{
			"nom":             "Dupont",
			"prenom":          "Marie",
			"email":           "marie.dupont@email.com",
			"dateInscription": date(2024, time.January, 15),
			"adresse": document.Document{
				"rue":        "15 rue de la Paix",
				"ville":      "Paris",
				"codePostal": "75002",
			},
			"telephone": "0601020304",
		},
		{
			"nom":             "Martin",
			"prenom":          "Pierre",
			"email":           "pierre.martin@email.com",
			"dateInscription": date(2024, time.February, 20),
			"adresse": document.Document{
				"rue":        "8 avenue des Champs",
				"ville":      "Lyon",
				"codePostal": "69001",
			},
		},
		{
			"nom":             "Bernard",
			"prenom":          "Sophie",
			"email":           "sophie.bernard@email.com",
			"dateInscription": date(2023, time.November, 10),
			"adresse": document.Document{
				"rue":        "22 boulevard Victor Hugo",
				"ville":      "Marseille",
				"codePostal": "13001",
			},
			"telephone": "0612345678",
		},
	}
}

// EmpruntsSeed returns loans with their history.
func EmpruntsSeed() []document.Document {
	return []document.Document{
		{
			"membreNom":       "Dupont",
			"livresEmpruntes": []interface{}{"Le Petit Prince", "1984"},
			"historique": []interface{}{
				document.Document{"action": "emprunt", "livre": "Le Petit Prince", "date": date(2024, time.January, 10)},
				document.Document{"action": "emprunt", "livre": "1984", "date": date(2024, time.January, 15)},
			},
		},
		{
			"membreNom":       "Martin",
			"livresEmpruntes": []interface{}{"Harry Potter à l'école des sorciers"},
			"historique": []interface{}{
				document.Document{"action": "emprunt", "livre": "Harry Potter à l'école des sorciers", "date": date(2024, time.January, 20)},
			},
		},
	}
}

// LivresReinsert returns the books put back after the delete walkthrough.
func LivresReinsert() []document.Document {
	return []document.Document{
		{
			"titre":             "Le Petit Prince",
			"auteur":            "Antoine de Saint-Exupéry",
			"anneePublication":  1943,
			"genre":             "Fiction",
			"isbn":              "978-2-07-061275-8",
			"disponible":        true,
			"nombreExemplaires": 3,
		},
		{
			"titre":             "1984",
			"auteur":            "George Orwell",
			"anneePublication":  1949,
			"genre":             "Science-fiction",
			"isbn":              "978-0-452-28423-4",
			"disponible":        true,
			"nombreExemplaires": 2,
		},
		{
			"titre":             "Harry Potter à l'école des sorciers",
			"auteur":            "J.K. Rowling",
			"anneePublication":  1997,
			"genre":             "Fantasy",
			"isbn":              "978-2-07-054120-6",
			"disponible":        true,
			"nombreExemplaires": 5,
		},
	}
}
