package analyzer

var stopLists = map[string][]string{
	"none": nil,
	"english": {
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"if", "in", "into", "is", "it", "no", "not", "of", "on", "or",
		"such", "that", "the", "their", "then", "there", "these", "they",
		"this", "to", "was", "will", "with",
	},
	"romanian": {
		"acea", "aceasta", "această", "aceea", "acei", "aceia", "acel", "acela",
		"acele", "acelea", "acest", "acesta", "aceste", "acestea", "acestei",
		"acestia", "acestui", "aceşti", "aceştia", "acolo", "acum", "ai", "aia",
		"aici", "al", "ale", "alt", "alta", "am", "ar", "are", "asta", "astfel",
		"asupra", "atunci", "au", "avea", "avem", "aveţi", "avut", "aţi", "ba",
		"ca", "cam", "cand", "care", "careia", "carora", "caruia", "cat", "catre",
		"ce", "cea", "ceea", "cei", "cel", "cele", "celor", "ceva", "chiar", "ci",
		"cine", "cu", "cui", "cum", "că", "căci", "cărei", "căror", "cărui",
		"către", "da", "daca", "dacă", "dar", "de", "deci", "deja", "despre",
		"deşi", "din", "dintr", "dintre", "doar", "după", "e", "ea", "ei", "el",
		"ele", "era", "este", "eu", "eşti", "fara", "fi", "fie", "fiecare", "fost",
		"fără", "i", "ia", "iar", "ii", "il", "in", "intre", "la", "le", "li",
		"lor", "lui", "m", "ma", "mai", "mea", "mei", "mele", "meu", "mi", "mie",
		"mult", "multe", "mă", "ne", "ni", "nici", "nimic", "noi", "nu", "numai",
		"o", "or", "ori", "orice", "pe", "pentru", "peste", "prin", "printr",
		"până", "pînă", "sa", "sau", "se", "si", "sint", "sunt", "suntem", "să",
		"său", "ta", "te", "ti", "tot", "toate", "toţi", "tu", "un", "una",
		"unde", "unei", "unele", "unor", "unui", "unul", "va", "vi", "voi", "vor",
		"vă", "îi", "îl", "îmi", "în", "îţi", "şi", "ţi", "ţie",
	},
}
