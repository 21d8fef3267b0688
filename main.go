package main

import (
	"fmt"
	"log"

	"github.com/skshohagmiah/docquery/internal/db"
	"github.com/skshohagmiah/docquery/internal/query"
)

func main() {
	// In-memory database, nothing is written to disk
	database := db.NewMemory()
	defer database.Close()

	livres, err := database.Collection("livres")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("🚀 Docquery Demo")
	fmt.Println("================")

	fmt.Println("\n1. Inserting books")
	ids, err := livres.InsertMany([]db.Document{
		{"titre": "Le Petit Prince", "auteur": "Antoine de Saint-Exupéry", "anneePublication": 1943, "genre": "Fiction"},
		{"titre": "1984", "auteur": "George Orwell", "anneePublication": 1949, "genre": "Science-fiction"},
		{"titre": "Le Seigneur des Anneaux", "auteur": "J.R.R. Tolkien", "anneePublication": 1954, "genre": "Fantasy"},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   Inserted %d books\n", len(ids))

	fmt.Println("\n2. Books published after 1945, newest first")
	docs, err := livres.Query().
		WhereGt("anneePublication", 1945).
		OrderByDesc("anneePublication").
		Select("titre", "anneePublication").
		All()
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range docs {
		fmt.Printf("   - %v (%v)\n", d["titre"], d["anneePublication"])
	}

	fmt.Println("\n3. Tagging every book")
	res, err := livres.UpdateMany(nil, query.NewUpdate().Push("tags", "classique").Build(), db.UpdateOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   Matched %d, modified %d\n", res.MatchedCount, res.ModifiedCount)

	fmt.Println("\n4. Deleting Fantasy books")
	del, err := livres.DeleteMany(query.Filter{"genre": "Fantasy"})
	if err != nil {
		log.Fatal(err)
	}
	n, err := livres.CountDocuments(nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   Deleted %d, %d left\n", del.DeletedCount, n)

	fmt.Println("\n✅ Demo completed!")
}
