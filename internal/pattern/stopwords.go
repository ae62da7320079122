package pattern

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"of": {}, "it": {}, "is": {}, "was": {}, "am": {}, "are": {}, "i": {}, "me": {},
	"my": {}, "myself": {}, "we": {}, "our": {}, "ours": {}, "ourselves": {}, "you": {},
	"your": {}, "yours": {}, "yourself": {}, "yourselves": {}, "he": {}, "him": {},
	"his": {}, "himself": {}, "she": {}, "her": {}, "hers": {}, "herself": {}, "its": {},
	"itself": {}, "they": {}, "them": {}, "their": {}, "theirs": {}, "themselves": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "having": {}, "do": {}, "does": {}, "did": {}, "doing": {}, "and": {},
	"but": {}, "if": {}, "or": {}, "because": {}, "as": {}, "until": {}, "while": {},
	"by": {}, "with": {}, "about": {}, "against": {}, "between": {}, "into": {},
	"through": {}, "during": {}, "before": {}, "after": {}, "above": {}, "below": {},
	"from": {}, "up": {}, "down": {}, "out": {}, "off": {}, "over": {}, "under": {},
	"again": {}, "further": {}, "then": {}, "once": {}, "here": {}, "there": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "all": {}, "any": {}, "both": {}, "each": {},
	"few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {}, "no": {},
	"nor": {}, "not": {}, "only": {}, "own": {}, "same": {}, "so": {}, "than": {},
	"too": {}, "very": {}, "s": {}, "t": {}, "can": {}, "will": {}, "just": {}, "don": {},
	"should": {}, "now": {}, "d": {}, "ll": {}, "m": {}, "o": {}, "re": {}, "ve": {},
	"y": {}, "ain": {}, "aren": {}, "couldn": {}, "didn": {}, "doesn": {}, "hadn": {},
	"hasn": {}, "haven": {}, "isn": {}, "ma": {}, "mightn": {}, "mustn": {}, "needn": {},
	"shan": {}, "shouldn": {}, "wasn": {}, "weren": {}, "won": {}, "wouldn": {}, "feel": {},
	"think": {}, "get": {}, "go": {}, "make": {}, "know": {}, "try": {}, "really": {},
	"want": {}, "need": {}, "like": {}, "day": {}, "time": {}, "work": {}, "going": {},
	"still": {}, "even": {}, "much": {}, "bit": {}, "today": {}, "yesterday": {},
	"week": {},
}
