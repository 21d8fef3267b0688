package library

import (
	"fmt"
	"regexp"
	"time"

	"github.com/skshohagmiah/docquery/internal/db"
	"github.com/skshohagmiah/docquery/internal/document"
	"github.com/skshohagmiah/docquery/internal/query"
)

// Connexion reports the database and the collections it already holds
func (r *Runner) Connexion() error {
	r.printf("✅ Base de données %q sélectionnée\n", DatabaseName)

	names := r.db.ListCollections()
	r.printf("\n📚 Collections existantes : %d\n", len(names))
	for _, name := range names {
		c, err := r.collection(name)
		if err != nil {
			return err
		}
		n, err := c.CountDocuments(nil)
		if err != nil {
			return err
		}
		r.printf("  - %s (%d documents)\n", name, n)
	}
	r.printf("\n💡 Note : une collection est créée automatiquement lors de la première insertion\n")
	return nil
}

// Creation creates the three collections, membres with a JSON Schema
func (r *Runner) Creation() error {
	r.section("📦", "Méthode 1 : Création implicite")
	r.printf("Les collections seront créées automatiquement lors de la première insertion\n")

	r.section("📦", "Méthode 2 : Création explicite sans validation")
	if err := r.create(Livres, db.CollectionOptions{}); err != nil {
		return err
	}

	r.section("📦", "Méthode 3 : Création avec validation de schéma")
	validator, err := db.NewJSONSchemaValidator(MembresSchema)
	if err != nil {
		return err
	}
	if err := r.create(Membres, db.CollectionOptions{Validator: validator}); err != nil {
		return err
	}
	if err := r.create(Emprunts, db.CollectionOptions{}); err != nil {
		return err
	}

	r.printf("\n📋 Collections dans la base de données :\n")
	for _, name := range r.db.ListCollections() {
		r.printf("  - %s\n", name)
	}
	return nil
}

func (r *Runner) create(name string, opts db.CollectionOptions) error {
	_, err := r.db.CreateCollection(name, opts)
	exists, err := ignoreExists(err)
	if err != nil {
		return err
	}
	if exists {
		r.printf("ℹ️ Collection %q déjà existante\n", name)
		return nil
	}
	r.printf("✅ Collection %q créée\n", name)
	return nil
}

// Insertion inserts the books and the members
func (r *Runner) Insertion() error {
	livres, membres, _, err := r.collections()
	if err != nil {
		return err
	}

	r.section("📝", "Insertion d'un seul document avec Insert()")
	id, err := livres.Insert(PetitPrince())
	if err != nil {
		return err
	}
	r.printf("✅ Livre inséré avec l'ID : %s\n", id)

	r.section("📝", "Insertion de plusieurs documents avec InsertMany()")
	ids, err := livres.InsertMany(LivresBatch())
	if err != nil {
		return err
	}
	r.printf("✅ %d livres insérés\n", len(ids))
	r.printf("IDs des documents insérés :\n")
	for i, id := range ids {
		r.printf("  %d. %s\n", i+1, id)
	}

	r.section("📝", "Insertion de membres")
	ids, err = membres.InsertMany(MembresSeed())
	if err != nil {
		return err
	}
	r.printf("✅ %d membres insérés\n", len(ids))

	r.printf("\n📊 Résumé des collections :\n")
	for _, c := range []*db.Collection{livres, membres} {
		n, err := c.CountDocuments(nil)
		if err != nil {
			return err
		}
		r.printf("  - %s : %d documents\n", c.Name(), n)
	}
	return nil
}

// Lecture reads documents with projection, sort, limit and counts
func (r *Runner) Lecture() error {
	livres, membres, _, err := r.collections()
	if err != nil {
		return err
	}

	r.section("📖", "1. Lire TOUS les livres avec Find()")
	tous, err := livres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	r.list("Nombre de livres", tous, func(d document.Document) string {
		return fmt.Sprintf("%s par %s", titre(d), field(d, "auteur"))
	})

	r.section("📖", "2. Lire UN livre avec FindOne()")
	un, err := livres.FindOne(query.Filter{"titre": "Le Petit Prince"}, db.FindOptions{})
	if err != nil {
		return err
	}
	if un != nil {
		r.printf("Livre trouvé :\n")
		r.printf("  Titre : %s\n", titre(un))
		r.printf("  Auteur : %s\n", field(un, "auteur"))
		r.printf("  Année : %s\n", field(un, "anneePublication"))
		r.printf("  ISBN : %s\n", field(un, "isbn"))
		r.printf("  Disponible : %s\n", ouiNon(un["disponible"] == true))
	}

	r.section("📖", "3. Lire les livres disponibles")
	dispo, err := livres.Find(query.Filter{"disponible": true}, db.FindOptions{})
	if err != nil {
		return err
	}
	r.list("Livres disponibles", dispo, func(d document.Document) string {
		return fmt.Sprintf("%s (%s exemplaires)", titre(d), field(d, "nombreExemplaires"))
	})

	r.section("📖", "4. Lire uniquement le titre et l'auteur des livres")
	projetes, err := livres.Find(nil, db.FindOptions{
		Projection: map[string]interface{}{"titre": 1, "auteur": 1, "_id": 0},
	})
	if err != nil {
		return err
	}
	for _, d := range projetes {
		r.printf("  - %s par %s\n", titre(d), field(d, "auteur"))
	}

	r.section("📖", "5. Lire les livres triés par année de publication")
	tries, err := livres.Query().OrderByAsc("anneePublication").All()
	if err != nil {
		return err
	}
	for _, d := range tries {
		r.printf("  - %s : %s\n", field(d, "anneePublication"), titre(d))
	}

	r.section("📖", "6. Lire les 3 premiers livres seulement")
	premiers, err := livres.Find(nil, db.FindOptions{Limit: db.Int(3)})
	if err != nil {
		return err
	}
	for i, d := range premiers {
		r.printf("  %d. %s\n", i+1, titre(d))
	}

	r.section("📖", "7. Compter les documents")
	total, err := livres.CountDocuments(nil)
	if err != nil {
		return err
	}
	fantasy, err := livres.CountDocuments(query.Filter{"genre": "Fantasy"})
	if err != nil {
		return err
	}
	r.printf("  Total de livres : %d\n", total)
	r.printf("  Livres Fantasy : %d\n", fantasy)

	r.section("📖", "8. Lire les membres")
	tousMembres, err := membres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	r.printf("Nombre de membres : %d\n", len(tousMembres))
	for _, m := range tousMembres {
		r.printf("  - %s (%s)\n", personne(m), field(m, "email"))
		r.printf("    Ville : %s\n", field(m, "adresse.ville"))
	}

	r.section("📖", "9. Lire les membres de Paris")
	paris, err := membres.Find(query.Filter{"adresse.ville": "Paris"}, db.FindOptions{})
	if err != nil {
		return err
	}
	r.list("Membres à Paris", paris, personne)
	return nil
}

// FiltresBasiques walks through comparison, membership and existence
// operators
func (r *Runner) FiltresBasiques() error {
	livres, membres, _, err := r.collections()
	if err != nil {
		return err
	}

	steps := []struct {
		title  string
		coll   *db.Collection
		filter query.Filter
		line   func(document.Document) string
	}{
		{"1. Filtre d'égalité simple - genre Fantasy", livres,
			query.Filter{"genre": "Fantasy"}, titre},
		{"2. Filtre $gt - Livres publiés après 1950", livres,
			query.NewFilter().Gt("anneePublication", 1950).Build(), titreAnnee},
		{"3. Filtre $gte - Livres avec 3 exemplaires ou plus", livres,
			query.NewFilter().Gte("nombreExemplaires", 3).Build(), titreExemplaires},
		{"4. Filtre $lt - Livres publiés avant 1950", livres,
			query.NewFilter().Lt("anneePublication", 1950).Build(), titreAnnee},
		{"5. Filtre $lte - Livres avec 2 exemplaires ou moins", livres,
			query.NewFilter().Lte("nombreExemplaires", 2).Build(), titreExemplaires},
		{"6. Combinaison - Livres publiés entre 1940 et 1960", livres,
			query.NewFilter().Gte("anneePublication", 1940).Lte("anneePublication", 1960).Build(), titreAnnee},
		{"7. Filtre $in - Livres de genre Fantasy ou Fiction", livres,
			query.NewFilter().In("genre", "Fantasy", "Fiction").Build(), titreGenre},
		{"8. Filtre $nin - Livres qui ne sont pas Fantasy ni Fiction", livres,
			query.NewFilter().Nin("genre", "Fantasy", "Fiction").Build(), titreGenre},
		{"9. Filtre $ne - Livres NON disponibles", livres,
			query.NewFilter().Ne("disponible", true).Build(), titre},
		{"10. Filtre $exists - Livres avec un champ \"emplacements\"", livres,
			query.NewFilter().Exists("emplacements", true).Build(), func(d document.Document) string {
				return fmt.Sprintf("%s : %s", titre(d), field(d, "emplacements"))
			}},
		{"11. Filtre $exists - Livres SANS champ \"emplacements\"", livres,
			query.NewFilter().Exists("emplacements", false).Build(), titre},
		{"12. Membres inscrits après le 1er janvier 2024", membres,
			query.NewFilter().Gte("dateInscription", date(2024, time.January, 1)).Build(), personneInscription},
		{"13. Membres avec un numéro de téléphone", membres,
			query.NewFilter().Exists("telephone", true).Build(), func(d document.Document) string {
				return fmt.Sprintf("%s : %s", personne(d), field(d, "telephone"))
			}},
	}

	for _, step := range steps {
		r.section("🔍", step.title)
		docs, err := step.coll.Find(step.filter, db.FindOptions{})
		if err != nil {
			return err
		}
		r.list("Nombre de documents", docs, step.line)
	}
	return nil
}

// FiltresLogiques walks through $and, $or, $nor and $not
func (r *Runner) FiltresLogiques() error {
	livres, membres, _, err := r.collections()
	if err != nil {
		return err
	}

	steps := []struct {
		title  string
		coll   *db.Collection
		filter query.Filter
		line   func(document.Document) string
	}{
		{"1. Filtre $and implicite - Livres Fantasy ET disponibles", livres,
			query.Filter{"genre": "Fantasy", "disponible": true}, titre},
		{"2. Filtre $and explicite - Livres publiés après 1950 ET disponibles", livres,
			query.Filter{"$and": []interface{}{
				query.Filter{"anneePublication": query.Filter{"$gt": 1950}},
				query.Filter{"disponible": true},
			}}, titreAnnee},
		{"3. Filtre $or - Livres Fantasy OU publiés avant 1950", livres,
			query.Filter{"$or": []interface{}{
				query.Filter{"genre": "Fantasy"},
				query.Filter{"anneePublication": query.Filter{"$lt": 1950}},
			}}, func(d document.Document) string {
				return fmt.Sprintf("%s (%s, %s)", titre(d), field(d, "genre"), field(d, "anneePublication"))
			}},
		{"4. Combinaison - Livres (Fantasy OU Fiction) ET disponibles", livres,
			query.Filter{"$and": []interface{}{
				query.Filter{"$or": []interface{}{
					query.Filter{"genre": "Fantasy"},
					query.Filter{"genre": "Fiction"},
				}},
				query.Filter{"disponible": true},
			}}, titreGenre},
		{"5. Filtre $or - Livres avec plus de 4 exemplaires OU non disponibles", livres,
			query.NewFilter().Or(
				query.Filter{"nombreExemplaires": query.Filter{"$gt": 4}},
				query.Filter{"disponible": false},
			).Build(), func(d document.Document) string {
				return fmt.Sprintf("%s : %s exemplaires, disponible: %s", titre(d), field(d, "nombreExemplaires"), field(d, "disponible"))
			}},
		{"6. Filtre $nor - Livres qui ne sont NI Fantasy NI Fiction", livres,
			query.NewFilter().Nor(
				query.Filter{"genre": "Fantasy"},
				query.Filter{"genre": "Fiction"},
			).Build(), titreGenre},
		{"7. Filtre $not - Livres avec nombre d'exemplaires PAS supérieur à 3", livres,
			query.Filter{"nombreExemplaires": query.Filter{"$not": query.Filter{"$gt": 3}}}, titreExemplaires},
		{"8. Requête complexe - Fantasy disponibles avec 3+ exemplaires OU publiés avant 1950", livres,
			query.Filter{"$or": []interface{}{
				query.Filter{"$and": []interface{}{
					query.Filter{"genre": "Fantasy"},
					query.Filter{"disponible": true},
					query.Filter{"nombreExemplaires": query.Filter{"$gte": 3}},
				}},
				query.Filter{"anneePublication": query.Filter{"$lt": 1950}},
			}}, titreAnnee},
		{"9. Membres de Paris OU Lyon", membres,
			query.Filter{"$or": []interface{}{
				query.Filter{"adresse.ville": "Paris"},
				query.Filter{"adresse.ville": "Lyon"},
			}}, personneVille},
		{"10. Membres avec téléphone ET inscrits en 2024", membres,
			query.Filter{"$and": []interface{}{
				query.Filter{"telephone": query.Filter{"$exists": true}},
				query.Filter{"dateInscription": query.Filter{"$gte": date(2024, time.January, 1)}},
			}}, personneInscription},
		{"11. Membres NI de Paris NI de Lyon", membres,
			query.Filter{"$nor": []interface{}{
				query.Filter{"adresse.ville": "Paris"},
				query.Filter{"adresse.ville": "Lyon"},
			}}, personneVille},
	}

	for _, step := range steps {
		r.section("🔍", step.title)
		docs, err := step.coll.Find(step.filter, db.FindOptions{})
		if err != nil {
			return err
		}
		r.list("Nombre de documents", docs, step.line)
	}
	return nil
}

// FiltresRegex walks through pattern matching
func (r *Runner) FiltresRegex() error {
	livres, membres, _, err := r.collections()
	if err != nil {
		return err
	}

	steps := []struct {
		title  string
		coll   *db.Collection
		filter query.Filter
		line   func(document.Document) string
	}{
		{"1. Recherche simple - Titres contenant \"Le\"", livres,
			query.Filter{"titre": query.Filter{"$regex": "Le"}}, titre},
		{"2. Recherche insensible à la casse - Titres contenant \"le\"", livres,
			query.NewFilter().Regex("titre", "le", "i").Build(), titre},
		{"3. Recherche de préfixe - Titres commençant par \"Le\"", livres,
			query.NewFilter().Regex("titre", "^Le", "i").Build(), titre},
		{"4. Recherche de suffixe - Titres se terminant par \"s\"", livres,
			query.NewFilter().Regex("titre", "s$", "i").Build(), titre},
		{"5. Recherche de mot complet - Auteurs contenant \"Hugo\"", livres,
			query.NewFilter().Regex("auteur", `\bHugo\b`, "i").Build(), titreAuteur},
		{"6. Recherche alternatives - Auteurs contenant \"Hugo\" OU \"Orwell\"", livres,
			query.NewFilter().Regex("auteur", "Hugo|Orwell", "i").Build(), titreAuteur},
		{"7. Recherche complexe - Titres avec un nombre", livres,
			query.Filter{"titre": query.Filter{"$regex": `\d`}}, titre},
		{"8. Emails se terminant par \"email.com\"", membres,
			query.NewFilter().Regex("email", `@email\.com$`, "i").Build(), func(d document.Document) string {
				return fmt.Sprintf("%s : %s", personne(d), field(d, "email"))
			}},
		{"9. Noms contenant \"dup\"", membres,
			query.NewFilter().Regex("nom", "dup", "i").Build(), personne},
		{"10. Adresses contenant \"rue\"", membres,
			query.NewFilter().Regex("adresse.rue", "rue", "i").Build(), func(d document.Document) string {
				return fmt.Sprintf("%s : %s", personne(d), field(d, "adresse.rue"))
			}},
		{"11. Titres contenant \"Harry\" ET \"Potter\"", livres,
			query.NewFilter().And(
				query.Filter{"titre": query.Filter{"$regex": "Harry", "$options": "i"}},
				query.Filter{"titre": query.Filter{"$regex": "Potter", "$options": "i"}},
			).Build(), titre},
		{"12. Recherche avec apostrophe - Titres contenant \"l'\"", livres,
			query.Filter{"titre": regexp.MustCompile(`(?i)l'`)}, titre},
	}

	for _, step := range steps {
		r.section("🔍", step.title)
		docs, err := step.coll.Find(step.filter, db.FindOptions{})
		if err != nil {
			return err
		}
		r.list("Nombre de documents", docs, step.line)
	}
	return nil
}

// MiseAJour walks through $set, $unset, $inc, UpdateMany and upserts
func (r *Runner) MiseAJour() error {
	livres, membres, _, err := r.collections()
	if err != nil {
		return err
	}

	r.section("✏️", "1. Modifier avec $set - Marquer \"1984\" comme non disponible")
	res, err := livres.UpdateOne(query.Filter{"titre": "1984"},
		query.NewUpdate().Set("disponible", false).Build(), db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)
	livre, err := livres.FindOne(query.Filter{"titre": "1984"}, db.FindOptions{})
	if err != nil {
		return err
	}
	if livre != nil {
		etat := "non disponible"
		if livre["disponible"] == true {
			etat = "disponible"
		}
		r.printf("Vérification : 1984 est %s\n", etat)
	}

	r.section("✏️", "2. Ajouter un nouveau champ - Ajouter \"langue\" au Petit Prince")
	if err := r.updateAndShow(livres, query.Filter{"titre": "Le Petit Prince"},
		query.Update{"$set": query.Update{"langue": "Français"}}, "langue"); err != nil {
		return err
	}

	r.section("✏️", "3. Modifier plusieurs champs - Mettre à jour \"Les Misérables\"")
	res, err = livres.UpdateOne(query.Filter{"titre": "Les Misérables"},
		query.NewUpdate().SetMany(document.Document{
			"disponible":        false,
			"nombreExemplaires": 3,
			"langue":            "Français",
		}).Build(), db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)

	r.section("✏️", "4. Modifier un champ imbriqué - Changer la ville d'un membre")
	if err := r.updateAndShow(membres, query.Filter{"nom": "Dupont"},
		query.NewUpdate().Set("adresse.ville", "Bordeaux").Build(), "adresse.ville"); err != nil {
		return err
	}

	r.section("✏️", "5. Incrémenter avec $inc - Augmenter les exemplaires de \"Harry Potter\"")
	if err := r.updateAndShow(livres, query.Filter{"titre": regexp.MustCompile(`(?i)Harry Potter`)},
		query.NewUpdate().Inc("nombreExemplaires", 2).Build(), "nombreExemplaires"); err != nil {
		return err
	}

	r.section("✏️", "6. Décrémenter avec $inc - Diminuer les exemplaires du \"Seigneur des Anneaux\"")
	if err := r.updateAndShow(livres, query.Filter{"titre": regexp.MustCompile(`(?i)Seigneur des Anneaux`)},
		query.NewUpdate().Inc("nombreExemplaires", -1).Build(), "nombreExemplaires"); err != nil {
		return err
	}

	r.section("✏️", "7. Supprimer un champ avec $unset - Retirer \"langue\" de \"1984\"")
	res, err = livres.UpdateOne(query.Filter{"titre": "1984"},
		query.NewUpdate().Unset("langue").Build(), db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)
	n, err := livres.CountDocuments(query.Filter{"titre": "1984", "langue": query.Filter{"$exists": true}})
	if err != nil {
		return err
	}
	r.printf("Vérification : Champ \"langue\" existe ? %t\n", n > 0)

	r.section("✏️", "8. Mettre à jour plusieurs documents - \"langue: Français\" pour les auteurs français")
	res, err = livres.UpdateMany(query.Filter{"$or": []interface{}{
		query.Filter{"auteur": regexp.MustCompile(`(?i)Victor Hugo`)},
		query.Filter{"auteur": regexp.MustCompile(`(?i)Saint-Exupéry`)},
	}}, query.Update{"$set": query.Update{"langue": "Français"}}, db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents correspondants : %d, modifiés : %d\n", res.MatchedCount, res.ModifiedCount)

	r.section("✏️", "9. Ajouter un champ à tous les livres - \"dateAjout\"")
	res, err = livres.UpdateMany(nil,
		query.NewUpdate().Set("dateAjout", date(2024, time.January, 1)).Build(), db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)

	r.section("✏️", "10. Upsert - Mettre à jour ou créer si n'existe pas")
	res, err = livres.UpdateOne(query.Filter{"titre": "Le Comte de Monte-Cristo"},
		query.NewUpdate().SetMany(document.Document{
			"auteur":            "Alexandre Dumas",
			"anneePublication":  1844,
			"genre":             "Roman",
			"isbn":              "978-2-253-09633-5",
			"disponible":        true,
			"nombreExemplaires": 2,
		}).Build(), db.UpdateOptions{Upsert: true})
	if err != nil {
		return err
	}
	r.printf("Document créé : %d\n", res.UpsertedCount)
	r.printf("Document modifié : %d\n", res.ModifiedCount)

	r.section("✏️", "11. Combinaison - $set et $inc dans la même mise à jour")
	res, err = livres.UpdateOne(query.Filter{"titre": "Le Petit Prince"},
		query.NewUpdate().Set("disponible", true).Inc("nombreExemplaires", 1).Build(), db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)
	pp, err := livres.FindOne(query.Filter{"titre": "Le Petit Prince"}, db.FindOptions{})
	if err != nil {
		return err
	}
	if pp != nil {
		r.printf("Vérification : disponible=%s, exemplaires=%s\n", field(pp, "disponible"), field(pp, "nombreExemplaires"))
	}

	r.printf("\n📊 État final de la collection livres :\n")
	tous, err := livres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	for _, d := range tous {
		langue := field(d, "langue")
		if langue == "N/A" {
			langue = "Non spécifiée"
		}
		r.printf("\n  %s (%s)\n", titre(d), field(d, "auteur"))
		r.printf("    Disponible: %s, Exemplaires: %s\n", field(d, "disponible"), field(d, "nombreExemplaires"))
		r.printf("    Langue: %s\n", langue)
	}
	return nil
}

func (r *Runner) updateAndShow(c *db.Collection, filter query.Filter, update query.Update, path string) error {
	res, err := c.UpdateOne(filter, update, db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)

	doc, err := c.FindOne(filter, db.FindOptions{})
	if err != nil {
		return err
	}
	if doc != nil {
		r.printf("Vérification : %s = %s\n", path, field(doc, path))
	}
	return nil
}

// Tableaux walks through array update operators and array filters
func (r *Runner) Tableaux() error {
	livres, _, emprunts, err := r.collections()
	if err != nil {
		return err
	}

	r.printf("📦 Préparation - Création d'emprunts avec historique\n")
	if _, err := emprunts.DeleteMany(nil); err != nil {
		return err
	}
	if _, err := emprunts.InsertMany(EmpruntsSeed()); err != nil {
		return err
	}
	r.printf("✅ Emprunts créés\n")

	dupont := query.Filter{"membreNom": "Dupont"}
	martin := query.Filter{"membreNom": "Martin"}

	r.section("📥", "1. $push - Ajouter un retour à l'historique de Dupont")
	if err := r.arrayUpdate(emprunts, dupont, query.NewUpdate().Push("historique", document.Document{
		"action": "retour",
		"livre":  "Le Petit Prince",
		"date":   date(2024, time.January, 25),
	}).Build(), "historique", false); err != nil {
		return err
	}

	r.section("📥", "2. $push avec $each - Ajouter plusieurs livres empruntés")
	if err := r.arrayUpdate(emprunts, martin, query.NewUpdate().PushEach("livresEmpruntes",
		[]interface{}{"Les Misérables", "Le Seigneur des Anneaux"}, nil).Build(), "livresEmpruntes", true); err != nil {
		return err
	}

	r.section("📥", "3. $addToSet - Ajouter un livre uniquement s'il n'existe pas déjà")
	res, err := emprunts.UpdateOne(martin, query.NewUpdate().AddToSet("livresEmpruntes", "Les Misérables").Build(), db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Premier ajout (existe déjà) - Documents modifiés : %d\n", res.ModifiedCount)
	if err := r.arrayUpdate(emprunts, martin, query.NewUpdate().AddToSet("livresEmpruntes", "1984").Build(), "livresEmpruntes", true); err != nil {
		return err
	}

	r.section("📤", "4. $pull - Retirer un livre de la liste d'emprunts")
	if err := r.arrayUpdate(emprunts, dupont, query.NewUpdate().Pull("livresEmpruntes", "Le Petit Prince").Build(), "livresEmpruntes", true); err != nil {
		return err
	}

	r.section("📤", "5. $pull avec condition - Retirer l'historique d'un livre")
	if err := r.arrayUpdate(emprunts, dupont, query.NewUpdate().Pull("historique", query.Filter{"livre": "Le Petit Prince"}).Build(), "historique", false); err != nil {
		return err
	}

	r.section("📤", "6. $pop - Retirer le dernier livre emprunté")
	if err := r.arrayUpdate(emprunts, martin, query.NewUpdate().PopLast("livresEmpruntes").Build(), "livresEmpruntes", true); err != nil {
		return err
	}

	r.section("📥", "7. Ajouter des tags à des livres")
	tags := []struct {
		titre string
		tags  []interface{}
	}{
		{"Le Petit Prince", []interface{}{"classique", "jeunesse", "philosophie"}},
		{"1984", []interface{}{"dystopie", "classique", "politique"}},
	}
	for _, t := range tags {
		if _, err := livres.UpdateOne(query.Filter{"titre": t.titre}, query.NewUpdate().Set("tags", t.tags).Build(), db.UpdateOptions{}); err != nil {
			return err
		}
	}
	r.printf("✅ Tags ajoutés\n")

	filters := []struct {
		title  string
		coll   *db.Collection
		filter query.Filter
		line   func(document.Document) string
	}{
		{"8. Livres ayant le tag \"classique\"", livres,
			query.Filter{"tags": "classique"}, func(d document.Document) string {
				return fmt.Sprintf("%s (tags: %s)", titre(d), field(d, "tags"))
			}},
		{"9. Livres ayant TOUS les tags \"classique\" et \"dystopie\"", livres,
			query.Filter{"tags": query.Filter{"$all": []interface{}{"classique", "dystopie"}}}, titre},
		{"10. Livres ayant exactement 3 tags", livres,
			query.Filter{"tags": query.Filter{"$size": 3}}, func(d document.Document) string {
				return fmt.Sprintf("%s : %s", titre(d), field(d, "tags"))
			}},
		{"11. Emprunts avec un retour après le 20/01/2024 ($elemMatch)", emprunts,
			query.Filter{"historique": query.Filter{"$elemMatch": query.Filter{
				"action": "retour",
				"date":   query.Filter{"$gte": date(2024, time.January, 20)},
			}}}, func(d document.Document) string {
				return "Membre : " + field(d, "membreNom")
			}},
	}
	for _, step := range filters {
		r.section("🔍", step.title)
		docs, err := step.coll.Find(step.filter, db.FindOptions{})
		if err != nil {
			return err
		}
		r.list("Nombre de documents", docs, step.line)
	}

	r.section("📥", "12. $push avec $slice - Garder seulement les 3 dernières entrées")
	now := time.Now().UTC()
	if err := r.arrayUpdate(emprunts, dupont, query.NewUpdate().PushEach("historique", []interface{}{
		document.Document{"action": "emprunt", "livre": "Test 1", "date": now},
		document.Document{"action": "emprunt", "livre": "Test 2", "date": now},
		document.Document{"action": "emprunt", "livre": "Test 3", "date": now},
	}, db.Int(-3)).Build(), "historique", false); err != nil {
		return err
	}

	r.printf("\n📊 État final de la collection emprunts :\n")
	tous, err := emprunts.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	for _, d := range tous {
		r.printf("\n  %s\n", field(d, "membreNom"))
		r.printf("    Livres actuellement empruntés : %s\n", field(d, "livresEmpruntes"))
		r.printf("    Historique : %d entrées\n", length(d, "historique"))
	}
	return nil
}

// arrayUpdate applies update to the first match and shows the array at
// path, as values or as a length
func (r *Runner) arrayUpdate(c *db.Collection, filter query.Filter, update query.Update, path string, values bool) error {
	res, err := c.UpdateOne(filter, update, db.UpdateOptions{})
	if err != nil {
		return err
	}
	r.printf("Documents modifiés : %d\n", res.ModifiedCount)

	doc, err := c.FindOne(filter, db.FindOptions{})
	if err != nil || doc == nil {
		return err
	}
	if values {
		r.printf("%s : %s\n", path, field(doc, path))
	} else {
		r.printf("Nombre d'entrées dans %s : %d\n", path, length(doc, path))
	}
	return nil
}

// Suppression walks through deletes, dropping a collection and reseeding
func (r *Runner) Suppression() error {
	livres, membres, emprunts, err := r.collections()
	if err != nil {
		return err
	}

	tous, err := livres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	r.printf("📊 État INITIAL de la collection livres :\n")
	r.list("Nombre total de livres", tous, titreAuteur)

	r.section("🗑️", "1. Supprimer UN document avec DeleteOne()")
	res, err := livres.DeleteOne(query.Filter{"titre": "Le Comte de Monte-Cristo"})
	if err != nil {
		return err
	}
	r.printf("Documents supprimés : %d\n", res.DeletedCount)
	if res.DeletedCount == 0 {
		r.printf("⚠️ Aucun document trouvé avec ce titre\n")
	}

	r.section("🗑️", "2. Supprimer le premier livre non disponible")
	res, err = livres.DeleteOne(query.Filter{"disponible": false})
	if err != nil {
		return err
	}
	r.printf("Documents supprimés : %d\n", res.DeletedCount)
	restants, err := livres.CountDocuments(query.Filter{"disponible": false})
	if err != nil {
		return err
	}
	r.printf("Il reste encore %d livre(s) non disponible(s)\n", restants)

	steps := []struct {
		title  string
		filter query.Filter
	}{
		{"3. Supprimer TOUS les livres de genre Fantasy", query.Filter{"genre": "Fantasy"}},
		{"4. Supprimer les livres publiés avant 1900", query.Filter{"anneePublication": query.Filter{"$lt": 1900}}},
		{"5. Supprimer les livres non disponibles avec moins de 3 exemplaires",
			query.Filter{"disponible": false, "nombreExemplaires": query.Filter{"$lt": 3}}},
	}
	for _, step := range steps {
		r.section("🗑️", step.title)
		n, err := livres.CountDocuments(step.filter)
		if err != nil {
			return err
		}
		r.printf("Livres à supprimer : %d\n", n)
		res, err := livres.DeleteMany(step.filter)
		if err != nil {
			return err
		}
		r.printf("Documents supprimés : %d\n", res.DeletedCount)
	}

	tous, err = livres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	r.printf("\n📊 État ACTUEL de la collection livres :\n")
	r.list("Nombre total de livres restants", tous, func(d document.Document) string {
		return fmt.Sprintf("%s (%s, %s)", titre(d), field(d, "genre"), field(d, "anneePublication"))
	})

	r.section("🗑️", "6. Supprimer un membre spécifique")
	res, err = membres.DeleteOne(query.Filter{"nom": "Bernard"})
	if err != nil {
		return err
	}
	r.printf("Membres supprimés : %d\n", res.DeletedCount)
	restantsMembres, err := membres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	r.list("Membres restants", restantsMembres, personneVille)

	r.section("🗑️", "7. Supprimer tous les emprunts d'un membre")
	res, err = emprunts.DeleteMany(query.Filter{"membreNom": "Martin"})
	if err != nil {
		return err
	}
	r.printf("Emprunts supprimés : %d\n", res.DeletedCount)

	r.section("⚠️", "8. ATTENTION - DeleteMany(nil) supprime TOUS les documents")
	r.printf("Cette commande ne sera PAS exécutée dans cet exemple\n")

	r.printf("\n📊 Résumé final des collections :\n")
	for _, c := range []*db.Collection{livres, membres, emprunts} {
		n, err := c.CountDocuments(nil)
		if err != nil {
			return err
		}
		r.printf("  - %s : %d documents\n", c.Name(), n)
	}

	r.section("🗑️", "9. Supprimer une collection complète")
	dropped, err := r.db.DropCollection(Emprunts)
	if err != nil {
		return err
	}
	r.printf("Collection %q supprimée : %t\n", Emprunts, dropped)
	r.printf("\n📋 Collections restantes dans la base de données :\n")
	for _, name := range r.db.ListCollections() {
		r.printf("  - %s\n", name)
	}

	r.section("📦", "Réinsertion de quelques livres pour les prochains exercices...")
	ids, err := livres.InsertMany(LivresReinsert())
	if err != nil {
		return err
	}
	r.printf("✅ %d livres réinsérés\n", len(ids))

	tous, err = livres.Find(nil, db.FindOptions{})
	if err != nil {
		return err
	}
	r.printf("\n📊 État FINAL de la collection livres :\n")
	r.list("Nombre total de livres", tous, titre)
	return nil
}

func titreAnnee(d document.Document) string {
	return fmt.Sprintf("%s (%s)", titre(d), field(d, "anneePublication"))
}

func titreGenre(d document.Document) string {
	return fmt.Sprintf("%s (%s)", titre(d), field(d, "genre"))
}

func titreAuteur(d document.Document) string {
	return fmt.Sprintf("%s par %s", titre(d), field(d, "auteur"))
}

func titreExemplaires(d document.Document) string {
	return fmt.Sprintf("%s : %s exemplaires", titre(d), field(d, "nombreExemplaires"))
}

func personneVille(d document.Document) string {
	return fmt.Sprintf("%s (%s)", personne(d), field(d, "adresse.ville"))
}

func personneInscription(d document.Document) string {
	return fmt.Sprintf("%s (%s)", personne(d), field(d, "dateInscription"))
}

func ouiNon(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}
