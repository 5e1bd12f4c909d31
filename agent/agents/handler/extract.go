package handler

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

var (
	productIDPattern = regexp.MustCompile(`(?i)\b(?:product|item)\s*(?:number|no\.?|id)?\s*#?\s*(\d+)\b`)
	orderIDPattern   = regexp.MustCompile(`(?i)\border\s*(?:number|no\.?|id)?\s*#?\s*(\d+)\b`)
	hashIDPattern    = regexp.MustCompile(`(?:^|[^\w#])#\s*(\d+)\b`)

	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:quantity|qty)\s*(?:of|:|=)?\s*(\d+)\b`),
		regexp.MustCompile(`(?i)\bx\s*(\d+)\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s*x\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s*(?:units?|pieces?|pcs|pairs?|of)\b`),
		regexp.MustCompile(`(?i)\b(?:add|put|remove|delete|take out|drop|buy|grab)\s+(\d+)\b`),
	}
	numberWordPattern = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|a couple of)\b`)
	// "the first one", "that one": the "one" there is not a quantity.
	referenceOnePattern = regexp.MustCompile(`(?i)\b(?:first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last|that|this|the|which|other|another|\d+(?:st|nd|rd|th))\s+one\b`)

	ordinalWordPattern = regexp.MustCompile(`(?i)\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\b`)
	ordinalNumPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	positionPattern    = regexp.MustCompile(`(?i)\b(?:number|no\.?)\s*(\d{1,2})\b`)
	lastPattern        = regexp.MustCompile(`(?i)\b(?:last|final)\b`)
	pronounPattern     = regexp.MustCompile(`(?i)\b(?:it|that|this|them|those|that one|this one)\b`)

	budgetPattern = regexp.MustCompile(`(?i)\b(?:under|below|less than|cheaper than|max(?:imum)?|up to|at most|no more than|within)\s*(?:of\s*)?\$?\s*(\d+(?:\.\d{1,2})?)\s*(?:dollars?|bucks|usd)?`)

	fillerPattern = regexp.MustCompile(`(?i)\b(?:can you|could you|would you|please|i(?:'m| am) looking for|i want(?: to buy)?|i need|i'd like|show me|search(?: for)?|find(?: me)?|look(?:ing)? for|do you (?:have|sell|carry)|(?:to|from|in|into|out of) (?:my|the) (?:cart|basket|bag)|add|put|throw in|remove|delete|take out|drop|buy|grab|get me)\b`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"a couple of": 2,
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "some": {}, "any": {}, "me": {}, "for": {}, "of": {},
	"to": {}, "my": {}, "in": {}, "on": {}, "with": {}, "and": {}, "i": {}, "you": {},
	"is": {}, "are": {}, "there": {}, "that": {}, "this": {}, "it": {}, "one": {}, "ones": {},
	"them": {}, "those": {}, "item": {}, "items": {}, "product": {}, "products": {},
	"something": {}, "stuff": {}, "thing": {}, "things": {}, "cart": {}, "basket": {},
	"want": {}, "like": {}, "need": {}, "get": {}, "more": {}, "also": {}, "just": {},
	"dollars": {}, "dollar": {}, "bucks": {}, "quantity": {}, "qty": {}, "units": {}, "unit": {},
	"what": {}, "do": {}, "have": {}, "got": {}, "show": {}, "your": {}, "all": {}, "see": {}, "list": {},
	"anything": {}, "please": {}, "find": {}, "search": {}, "last": {}, "final": {},
	"take": {}, "i'll": {}, "give": {}, "plus": {}, "minus": {}, "instead": {},
}

// ProductID finds an explicit product reference such as "product 7",
// "item #7" or a bare "#7".
func ProductID(text string) (int64, bool) {
	if m := productIDPattern.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	if orderIDPattern.MatchString(text) {
		return 0, false
	}
	if m := hashIDPattern.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	return 0, false
}

// OrderID finds "order 12", "order #12" or a bare "#12".
func OrderID(text string) (int64, bool) {
	if m := orderIDPattern.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	if productIDPattern.MatchString(text) {
		return 0, false
	}
	if m := hashIDPattern.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	return 0, false
}

// Quantity finds an explicit quantity: "quantity 2", "qty 2", "x2", "2 units",
// "add 3" or a number word up to twelve.
func Quantity(text string) (int, bool) {
	for _, re := range quantityPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n, true
			}
		}
	}
	cleaned := referenceOnePattern.ReplaceAllString(text, " ")
	if m := numberWordPattern.FindStringSubmatch(cleaned); m != nil {
		return numberWords[strings.ToLower(m[1])], true
	}
	return 0, false
}

// Reference is an ordinal or pronoun pointing into the previous payload.
type Reference struct {
	Position int
	Last     bool
	Pronoun  bool
}

func ParseReference(text string) (Reference, bool) {
	if m := ordinalWordPattern.FindStringSubmatch(text); m != nil {
		return Reference{Position: ordinalWords[strings.ToLower(m[1])]}, true
	}
	if m := ordinalNumPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return Reference{Position: n}, true
		}
	}
	if m := positionPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return Reference{Position: n}, true
		}
	}
	if lastPattern.MatchString(text) {
		return Reference{Last: true}, true
	}
	if pronounPattern.MatchString(text) {
		return Reference{Pronoun: true}, true
	}
	return Reference{}, false
}

// Resolve maps the reference onto payload items. A pronoun only resolves
// when the payload holds a single item.
func (r Reference) Resolve(p *statex.Payload) (statex.Item, bool) {
	switch {
	case r.Position > 0:
		return p.At(r.Position)
	case r.Last:
		return p.Last()
	case r.Pronoun && p.Len() == 1:
		return p.At(1)
	default:
		return statex.Item{}, false
	}
}

// Budget finds an upper price bound in cents: "under $50", "below 50",
// "less than 50 dollars", "max 50".
func Budget(text string) (int64, bool) {
	m := budgetPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// SearchPhrase strips request verbs, filler, budgets, quantities and ids and
// returns the remaining product words.
func SearchPhrase(text string) string {
	s := strings.ToLower(text)
	s = budgetPattern.ReplaceAllString(s, " ")
	s = productIDPattern.ReplaceAllString(s, " ")
	s = orderIDPattern.ReplaceAllString(s, " ")
	for _, re := range quantityPatterns {
		s = re.ReplaceAllString(s, " ")
	}
	s = referenceOnePattern.ReplaceAllString(s, " ")
	s = fillerPattern.ReplaceAllString(s, " ")

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f == "" {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := numberWords[f]; ok {
			continue
		}
		if _, ok := ordinalWords[f]; ok {
			continue
		}
		words = append(words, f)
	}
	return strings.Join(words, " ")
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
