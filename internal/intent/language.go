package intent

import "regexp"

// Language keyword heuristics. First match wins; English is the default
// when nothing distinctive is found.
var languagePatterns = []struct {
	code    string
	pattern *regexp.Regexp
}{
	{"af", regexp.MustCompile(`(?i)\b(goeie|dankie|asseblief|hoe|wat|kan|jammer|inenting|entstof)\b`)},
	{"zu", regexp.MustCompile(`(?i)\b(sawubona|ngiyabonga|ngicela|kanjani|yini|usizo|ukugoma|umgomo)\b`)},
	{"xh", regexp.MustCompile(`(?i)\b(molo|enkosi|nceda|njani|yintoni|uncedo|ukugonya|isithintelo)\b`)},
}

// DetectLanguage guesses the language of text from keyword heuristics,
// returning one of en/af/zu/xh.
func DetectLanguage(text string) string {
	for _, lp := range languagePatterns {
		if lp.pattern.MatchString(text) {
			return lp.code
		}
	}
	return "en"
}
