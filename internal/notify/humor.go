// Package notify delivers supervisor alerts to Slack through the Mujo
// bot persona: multilingual messages (de/en/bs) with an optional
// scripted humor layer.
package notify

import (
	"fmt"
	"math/rand"
)

// Language selects which corpus Mujo speaks from.
type Language string

const (
	LangGerman  Language = "de"
	LangEnglish Language = "en"
	LangBosnian Language = "bs"
)

// JokeCategory groups the corpus.
type JokeCategory string

const (
	CategoryMujoHase     JokeCategory = "mujo-hase"
	CategoryBosnierTurke JokeCategory = "bosnier-turken"
	CategoryChuckNorris  JokeCategory = "chuck-norris"
	CategoryTech         JokeCategory = "tech"
)

// Rating gates where a joke may appear. Higher values are safer.
type Rating int

const (
	RatingCasual       Rating = 1
	RatingProfessional Rating = 2
	RatingSafe         Rating = 3
)

// Joke is one scripted entry. Setup is optional; one-liners carry only
// the punchline.
type Joke struct {
	Category  JokeCategory
	Language  Language
	Setup     string
	Punchline string
	Rating    Rating
}

var jokes = []Joke{
	// Mujo & Hase
	{CategoryMujoHase, LangGerman,
		"Mujo und Hase sitzen am Fluss. Hase fragt: 'Mujo, wie viele Server haben wir?'",
		"Mujo: 'Drei. Einer läuft, einer crashed, und einer weiß nicht, dass er ein Server ist.'",
		RatingProfessional},
	{CategoryMujoHase, LangGerman,
		"Mujo deployed in Production. Hase fragt: 'Hast du getestet?'",
		"Mujo: 'Ja, in Production!'",
		RatingProfessional},
	{CategoryMujoHase, LangGerman,
		"Hase: 'Mujo, was ist ein Bug?'",
		"Mujo: 'Ein undokumentiertes Feature!'",
		RatingSafe},
	{CategoryMujoHase, LangEnglish,
		"Mujo and Haso are deploying. Haso asks: 'Did you test it?'",
		"Mujo: 'The users will test it for free!'",
		RatingProfessional},
	{CategoryMujoHase, LangEnglish,
		"Haso: 'Mujo, why is the server down?'",
		"Mujo: 'It's not down, it's just taking a coffee break!'",
		RatingSafe},
	{CategoryMujoHase, LangBosnian,
		"Mujo i Haso prave aplikaciju. Haso pita: 'Jesi testirao?'",
		"Mujo: 'Jesam, radi na mom računaru!'",
		RatingProfessional},
	{CategoryMujoHase, LangBosnian,
		"Haso: 'Mujo, zašto server ne radi?'",
		"Mujo: 'Pa radi, samo se odmara malo!'",
		RatingSafe},

	// Bosnier & Türken
	{CategoryBosnierTurke, LangGerman,
		"Ein Bosnier und ein Türke gründen ein Startup.",
		"Bosnier macht den Code, Türke macht den Döner. Beide sind erfolgreich!",
		RatingSafe},
	{CategoryBosnierTurke, LangGerman,
		"Bosnier: 'Mein Code hat keine Bugs!' Türke: 'Meiner auch nicht!'",
		"Compiler: 'Ihr habt beide 42 Errors.'",
		RatingProfessional},
	{CategoryBosnierTurke, LangEnglish,
		"A Bosnian and a Turkish developer walk into a meeting.",
		"They both say: 'It works on my machine!' - nobody can reproduce the bug!",
		RatingProfessional},
	{CategoryBosnierTurke, LangBosnian,
		"Bosanac i Turcin rade DevOps.",
		"Bosanac: 'Deployujem!' Turcin: 'I ja deployujem!' Production: 'Ne deployujte više!'",
		RatingProfessional},

	// Chuck Norris style
	{CategoryChuckNorris, LangGerman, "",
		"Mujo testet nicht in Production. Production testet in Mujo.",
		RatingProfessional},
	{CategoryChuckNorris, LangGerman, "",
		"Mujo's Code hat keine Bugs. Bugs haben Mujo's Code.",
		RatingSafe},
	{CategoryChuckNorris, LangGerman, "",
		"Wenn Mujo deployed, sagen die Server 'Danke'.",
		RatingSafe},
	{CategoryChuckNorris, LangEnglish, "",
		"Mujo doesn't write code. Code writes itself out of respect.",
		RatingSafe},
	{CategoryChuckNorris, LangEnglish, "",
		"Mujo doesn't have a STOP score. STOP scores have Mujo.",
		RatingProfessional},
	{CategoryChuckNorris, LangBosnian, "",
		"Mujo ne piše kod. Kod se piše sam kad vidi Mujo.",
		RatingSafe},
	{CategoryChuckNorris, LangBosnian, "",
		"Kad Mujo deployuje, serveri kažu 'hvala'.",
		RatingSafe},

	// Tech
	{CategoryTech, LangGerman,
		"Warum verwenden Programmierer immer dunkles Theme?",
		"Weil das Licht Bugs anzieht!",
		RatingSafe},
	{CategoryTech, LangEnglish,
		"Why do programmers prefer dark mode?",
		"Because light attracts bugs!",
		RatingSafe},
	{CategoryTech, LangBosnian,
		"Zašto programeri vole tamu?",
		"Jer svjetlo privlači bugove!",
		RatingSafe},
}

// RandomJoke picks a joke in the given language, optionally narrowed
// to a category, at or above the minimum rating. When the language has
// no match the filter widens to all languages. Returns nil when the
// whole corpus has nothing suitable.
func RandomJoke(lang Language, category JokeCategory, minRating Rating) *Joke {
	matching := filterJokes(lang, category, minRating)
	if len(matching) == 0 {
		matching = filterJokes("", category, minRating)
	}
	if len(matching) == 0 {
		return nil
	}
	j := matching[rand.Intn(len(matching))]
	return &j
}

func filterJokes(lang Language, category JokeCategory, minRating Rating) []Joke {
	var out []Joke
	for _, j := range jokes {
		if lang != "" && j.Language != lang {
			continue
		}
		if category != "" && j.Category != category {
			continue
		}
		if j.Rating < minRating {
			continue
		}
		out = append(out, j)
	}
	return out
}

var greetings = map[Language][]string{
	LangGerman: {
		"Hallo! Mujo hier, dein freundlicher Supervisor Bot!",
		"Servus! Ich bin Mujo, bereit für Action!",
		"Moin! Mujo meldet sich zum Dienst!",
	},
	LangEnglish: {
		"Hello! Mujo here, your friendly Supervisor Bot!",
		"Hi there! Mujo reporting for duty!",
		"What's up! Mujo is here - let's get things done!",
	},
	LangBosnian: {
		"Ćao! Mujo ovdje, tvoj prijateljski Supervisor Bot!",
		"Hej! Mujo se javlja na dužnost!",
		"Šta ima! Mujo je tu - hajmo raditi!",
	},
}

// Greeting returns a random greeting in the given language.
func Greeting(lang Language) string {
	options, ok := greetings[lang]
	if !ok {
		options = greetings[LangGerman]
	}
	return options[rand.Intn(len(options))]
}

var signatures = map[Language]string{
	LangGerman:  "Mujo - Dein mehrsprachiger Supervisor Bot (DE/EN/BS)",
	LangEnglish: "Mujo - Your multilingual Supervisor Bot (DE/EN/BS)",
	LangBosnian: "Mujo - Tvoj višejezični Supervisor Bot (DE/EN/BS)",
}

// Signature returns Mujo's footer line in the given language.
func Signature(lang Language) string {
	if s, ok := signatures[lang]; ok {
		return s
	}
	return signatures[LangGerman]
}

// HumorContext classifies a message for the humor layer.
type HumorContext string

const (
	ContextAlert   HumorContext = "alert"
	ContextInfo    HumorContext = "info"
	ContextSuccess HumorContext = "success"
)

// AddHumor decorates a message with a joke where appropriate. Critical
// alerts stay serious. Success messages get a chuck-norris one-liner
// 30% of the time, info messages any professional joke 20% of the
// time.
func AddHumor(message string, ctx HumorContext, lang Language) string {
	if ctx == ContextAlert {
		return message
	}
	switch ctx {
	case ContextSuccess:
		if rand.Float64() < 0.3 {
			if j := RandomJoke(lang, CategoryChuckNorris, RatingSafe); j != nil {
				return fmt.Sprintf("%s\n\n_%s_", message, j.Punchline)
			}
		}
	case ContextInfo:
		if rand.Float64() < 0.2 {
			if j := RandomJoke(lang, "", RatingProfessional); j != nil {
				if j.Setup != "" {
					return fmt.Sprintf("%s\n\n_%s %s_", message, j.Setup, j.Punchline)
				}
				return fmt.Sprintf("%s\n\n_%s_", message, j.Punchline)
			}
		}
	}
	return message
}
