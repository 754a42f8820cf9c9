package gender

// form is one gender-marked word with its counterparts. Neutral is empty when
// the language has no accepted neutral form for the word.
type form struct {
	masculine string
	feminine  string
	neutral   string
}

var lexicon = map[string][]form{
	"es": {
		{"cansado", "cansada", "cansade"},
		{"listo", "lista", "liste"},
		{"seguro", "segura", ""},
		{"contento", "contenta", ""},
		{"preocupado", "preocupada", "preocupade"},
		{"enfermo", "enferma", ""},
		{"nervioso", "nerviosa", ""},
		{"ocupado", "ocupada", "ocupade"},
		{"emocionado", "emocionada", ""},
		{"enojado", "enojada", ""},
		{"agotado", "agotada", ""},
		{"equivocado", "equivocada", ""},
		{"perdido", "perdida", ""},
		{"encantado", "encantada", ""},
		{"bienvenido", "bienvenida", "bienvenide"},
		{"sorprendido", "sorprendida", ""},
		{"asustado", "asustada", ""},
		{"confundido", "confundida", ""},
		{"aburrido", "aburrida", ""},
		{"orgulloso", "orgullosa", ""},
		{"amigo", "amiga", "amigue"},
		{"querido", "querida", "queride"},
		{"solito", "solita", ""},
	},
	"fr": {
		{"fatigué", "fatiguée", ""},
		{"prêt", "prête", ""},
		{"sûr", "sûre", ""},
		{"content", "contente", ""},
		{"désolé", "désolée", ""},
		{"heureux", "heureuse", ""},
		{"perdu", "perdue", ""},
		{"occupé", "occupée", ""},
		{"inquiet", "inquiète", ""},
		{"seul", "seule", ""},
		{"allé", "allée", ""},
		{"venu", "venue", ""},
		{"parti", "partie", ""},
		{"arrivé", "arrivée", ""},
		{"ravi", "ravie", ""},
		{"fier", "fière", ""},
		{"ami", "amie", ""},
		{"cher", "chère", ""},
	},
	"it": {
		{"stanco", "stanca", ""},
		{"pronto", "pronta", ""},
		{"sicuro", "sicura", ""},
		{"contento", "contenta", ""},
		{"preoccupato", "preoccupata", ""},
		{"stato", "stata", ""},
		{"andato", "andata", ""},
		{"arrivato", "arrivata", ""},
		{"nato", "nata", ""},
		{"sposato", "sposata", ""},
		{"caro", "cara", ""},
		{"amico", "amica", ""},
	},
	"pt": {
		{"cansado", "cansada", ""},
		{"pronto", "pronta", ""},
		{"obrigado", "obrigada", ""},
		{"seguro", "segura", ""},
		{"preocupado", "preocupada", ""},
		{"sozinho", "sozinha", ""},
		{"ocupado", "ocupada", ""},
		{"perdido", "perdida", ""},
		{"amigo", "amiga", ""},
		{"querido", "querida", ""},
		{"nascido", "nascida", ""},
	},
	"he": {
		{"עייף", "עייפה", ""},
		{"מוכן", "מוכנה", ""},
		{"בטוח", "בטוחה", ""},
		{"יודע", "יודעת", ""},
		{"חושב", "חושבת", ""},
		{"אוהב", "אוהבת", ""},
		{"צריך", "צריכה", ""},
		{"יכול", "יכולה", ""},
		{"הולך", "הולכת", ""},
		{"שמח", "שמחה", ""},
		{"מצטער", "מצטערת", ""},
		{"עסוק", "עסוקה", ""},
	},
	"de": {
		{"freund", "freundin", ""},
		{"lehrer", "lehrerin", ""},
		{"arzt", "ärztin", ""},
		{"kollege", "kollegin", ""},
		{"nachbar", "nachbarin", ""},
	},
}

// Source-language evidence of the referent's gender.
var (
	masculineCues = []string{"he", "him", "his", "himself", "man", "boy", "guy", "sir", "mr", "father", "dad", "brother", "son", "husband", "boyfriend", "king"}
	feminineCues  = []string{"she", "her", "hers", "herself", "woman", "girl", "lady", "ma'am", "madam", "mrs", "ms", "miss", "mother", "mom", "sister", "daughter", "wife", "girlfriend", "queen"}
)
