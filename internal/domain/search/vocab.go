package search

import (
	"strings"
	"unicode"
)

// categoryTerms maps audience words to the catalog category enum. Longer
// terms come first so that "women" is tried before "men".
var categoryTerms = []struct {
	term     string
	category string
}{
	{"女裝", "women"}, {"女生", "women"}, {"女性", "women"}, {"女士", "women"}, {"女款", "women"},
	{"男裝", "men"}, {"男生", "men"}, {"男性", "men"}, {"男士", "men"}, {"男款", "men"},
	{"童裝", "kids"}, {"兒童", "kids"}, {"小孩", "kids"}, {"童款", "kids"},
	{"women's", "women"}, {"womens", "women"}, {"women", "women"}, {"ladies", "women"},
	{"men's", "men"}, {"mens", "men"}, {"men", "men"},
	{"children", "kids"}, {"kids", "kids"}, {"kid", "kids"},
}

// garmentTerms name product types. A query made only of these and
// audience words is a plain category browse.
var garmentTerms = []string{
	"上衣", "外套", "夾克", "褲子", "長褲", "短褲", "牛仔褲", "裙子", "洋裝", "襯衫", "毛衣", "帽t", "t恤",
	"鞋子", "運動鞋", "靴子", "衣服",
	"t-shirt", "jacket", "jackets", "shirt", "shirts", "pants", "jeans", "dress", "dresses", "skirt",
	"sweater", "hoodie", "coat", "shoes", "sneakers", "boots",
}

var brandTerms = []string{
	"nike", "adidas", "uniqlo", "zara", "h&m", "puma", "gap", "levi's", "levis", "new balance",
	"converse", "vans", "asics", "reebok", "under armour", "the north face", "lululemon", "muji",
}

var occasionTerms = []string{
	"約會", "婚禮", "面試", "上班", "通勤", "派對", "聚會", "旅行", "度假", "海邊", "戶外", "登山", "畢業", "正式", "運動",
	"date", "wedding", "interview", "office", "party", "travel", "vacation", "beach", "outdoor", "hiking", "formal", "workout",
}

var descriptiveTerms = []string{
	"舒適", "時尚", "休閒", "保暖", "透氣", "防水", "輕便", "優雅", "可愛", "簡約", "復古", "修身", "寬鬆", "柔軟", "耐穿", "風格",
	"comfortable", "comfy", "stylish", "casual", "warm", "breathable", "waterproof", "lightweight", "elegant", "cute",
	"minimalist", "vintage", "slim", "loose", "soft", "cozy",
}

// fillerTerms are politeness prefixes, quantifiers and particles dropped from keywords.
var fillerTerms = []string{
	"我想要買", "我想要", "我想買", "我想找", "請幫我找", "幫我找", "請給我", "給我", "我要", "想要", "想找", "請問",
	"有沒有", "有推薦", "推薦", "一些", "一件", "一雙", "一條", "一個", "一套", "幾件", "適合",
	"please", "show me", "i want", "i need", "looking for", "find me", "a pair of", "some",
}

var trailingParticles = []string{"嗎", "呢", "吧", "啊"}

// containsTerm reports whether term occurs in s (both lower case). ASCII
// terms must not be glued to other ASCII letters, so "men" does not match "women".
func containsTerm(s, term string) bool {
	return indexTerm(s, term) >= 0
}

func indexTerm(s, term string) int {
	if !isASCIIWord(term) {
		return strings.Index(s, term)
	}

	offset := 0
	for {
		i := strings.Index(s[offset:], term)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(term)
		if !asciiLetterAt(s, start-1) && !asciiLetterAt(s, end) {
			return start
		}
		offset = start + 1
	}
}

func removeTerm(s, term string) (string, bool) {
	found := false
	for {
		i := indexTerm(s, term)
		if i < 0 {
			return s, found
		}
		found = true
		s = s[:i] + " " + s[i+len(term):]
	}
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func asciiLetterAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if containsTerm(s, t) {
			return true
		}
	}
	return false
}

// categoryOf returns the first audience category named in s.
func categoryOf(s string) string {
	for _, ct := range categoryTerms {
		if containsTerm(s, ct.term) {
			return ct.category
		}
	}
	return ""
}

func isCategory(s string) bool {
	switch s {
	case "men", "women", "kids":
		return true
	}
	return false
}
