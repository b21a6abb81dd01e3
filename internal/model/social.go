package model

// Social categories discovered on a token contract.
const (
	SocialWebsite  = "website"
	SocialTwitter  = "twitter"
	SocialTelegram = "telegram"
	SocialDiscord  = "discord"
)

// SocialCategories lists the categories in display order.
var SocialCategories = []string{SocialWebsite, SocialTwitter, SocialTelegram, SocialDiscord}

// SocialSet maps a social category to at most one canonical URL.
type SocialSet map[string]string

// Fill sets a category only if it is still empty.
func (s SocialSet) Fill(category, url string) {
	if url == "" {
		return
	}
	if _, ok := s[category]; !ok {
		s[category] = url
	}
}

// Complete reports whether every category is populated.
func (s SocialSet) Complete() bool {
	for _, c := range SocialCategories {
		if s[c] == "" {
			return false
		}
	}
	return true
}
