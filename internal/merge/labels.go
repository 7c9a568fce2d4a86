package merge

import (
	"strings"

	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(supportedLocales)

// ResolveLocale maps a requested language onto a supported locale. Anything
// unsupported resolves to English.
func ResolveLocale(requested string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(requested))
	if err != nil {
		return language.English
	}
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supportedLocales[idx]
}

type labelSet map[string]string

var labels = map[language.Tag]labelSet{
	language.English: {
		"hero":         "Home",
		"splitHero":    "Welcome",
		"about":        "About Us",
		"features":     "Our Services",
		"testimonials": "What Customers Say",
		"team":         "Meet the Team",
		"portfolio":    "Our Work",
		"pricing":      "Pricing",
		"faq":          "Frequently Asked Questions",
		"menu":         "Our Menu",
		"gallery":      "Gallery",
		"contact":      "Contact Us",
		"banner":       "Highlights",
		"cta":          "Get Started",
		"heroButton":   "Explore",
		"ctaButton":    "Get in touch",
		"ctaHeadline":  "Ready to visit %s?",
	},
	language.Indonesian: {
		"hero":         "Beranda",
		"splitHero":    "Selamat Datang",
		"about":        "Tentang Kami",
		"features":     "Layanan Kami",
		"testimonials": "Kata Pelanggan",
		"team":         "Tim Kami",
		"portfolio":    "Karya Kami",
		"pricing":      "Harga",
		"faq":          "Pertanyaan Umum",
		"menu":         "Menu Kami",
		"gallery":      "Galeri",
		"contact":      "Hubungi Kami",
		"banner":       "Sorotan",
		"cta":          "Mulai",
		"heroButton":   "Jelajahi",
		"ctaButton":    "Hubungi kami",
		"ctaHeadline":  "Siap berkunjung ke %s?",
	},
}

func label(locale language.Tag, key string) string {
	if set, ok := labels[locale]; ok {
		if v, ok := set[key]; ok {
			return v
		}
	}
	return labels[language.English][key]
}
