package simart

// DefaultVocabulary is the curated list of news terms matched by VocabularyExtractor.
// People are listed by last name only.
var DefaultVocabulary = []string{
	// Geopolitics and regions
	"israel", "palestine", "gaza", "russia", "ukraine", "china",
	"taiwan", "usa", "america", "iran", "india", "middle east",
	"north korea", "un", "eu", "border", "afghanistan", "iraq",

	// Technology and business
	"ai", "artificial intelligence", "machine learning",
	"cryptocurrency", "blockchain", "stocks", "economy", "recession",
	"inflation", "interest rates", "big tech", "startup",
	"ipo", "merger", "acquisition", "amazon", "google", "meta", "tesla",

	// Politics and law
	"election", "president", "congress", "senate", "supreme court",
	"legislation", "sanctions", "campaign", "investigation",
	"impeachment", "protest", "vote", "ballot", "governor", "government",

	// Health and environment
	"covid", "vaccine", "pandemic", "climate change",
	"global warming", "wildfire", "hurricane", "earthquake",
	"flood", "outbreak", "healthcare", "hospitals",

	// Crime and security
	"hamas", "terrorism", "cybersecurity", "hacking",
	"police", "shooting", "arrest", "fbi", "war",
	"conflict", "defense", "military", "secret service", "immigration",

	// Society and culture
	"celebrity", "tiktok", "twitter", "x", "sports",
	"olympics", "world cup", "movies", "hollywood",
	"netflix", "rally", "social media", "influencer",

	// People
	"musk", "trump", "harris", "biden", "pelosi", "obama",
}
