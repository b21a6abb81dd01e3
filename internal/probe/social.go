package probe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchscope/internal/model"
)

// Candidate zero-argument getter names per social category, tried in
// order; the first that answers wins.
var socialDirectGetters = map[string][]string{
	model.SocialWebsite:  {"website", "websiteUrl", "websiteURL", "site"},
	model.SocialTwitter:  {"twitter", "twitterUrl", "twitterURL", "x"},
	model.SocialTelegram: {"telegram", "telegramUrl", "telegramURL", "tg"},
	model.SocialDiscord:  {"discord", "discordUrl", "discordURL"},
}

// Tuple-style batch getters returning four strings mapped positionally
// onto website, twitter, telegram, discord.
var socialTupleGetters = []string{"getSocials", "socialLinks", "socials"}

var contractURIGetters = []string{"contractURI", "metadataURI"}

const maxMetadataBody = 256 * 1024

var (
	twitterURLRe  = regexp.MustCompile(`(?i)(^|://|www\.)(x\.com|twitter\.com)(/|$)`)
	telegramURLRe = regexp.MustCompile(`(?i)(^|://|www\.)(t\.me|telegram\.me)(/|$)`)
	discordURLRe  = regexp.MustCompile(`(?i)(^|://|www\.)(discord\.gg|discord\.com)(/|$)`)
	websiteURLRe  = regexp.MustCompile(`(?i)^(https?://|www\.)[^\s]+\.[^\s]{2,}`)
)

// classifyURL assigns a URL-looking string to a social category, or ""
// when the value does not look like a link at all.
func classifyURL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 4 || strings.ContainsAny(s, " \t\n") {
		return ""
	}
	switch {
	case twitterURLRe.MatchString(s):
		return model.SocialTwitter
	case telegramURLRe.MatchString(s):
		return model.SocialTelegram
	case discordURLRe.MatchString(s):
		return model.SocialDiscord
	case websiteURLRe.MatchString(s):
		return model.SocialWebsite
	default:
		return ""
	}
}

// categoryForKey resolves a semantic key (from config lists or metadata
// JSON) to a social category.
func categoryForKey(key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "website", "site", "www", "web", "homepage", "external_url":
		return model.SocialWebsite
	case "twitter", "x":
		return model.SocialTwitter
	case "telegram", "tg":
		return model.SocialTelegram
	case "discord":
		return model.SocialDiscord
	default:
		return ""
	}
}

// DiscoverSocials probes a token contract for social links. txInput, when
// non-nil, is the raw creation-call payload scanned as a last resort.
// Each step only fills categories still empty; a final normalization
// pass reclassifies values that landed in the wrong slot.
func (p *Probe) DiscoverSocials(ctx context.Context, token common.Address, txInput []byte) model.SocialSet {
	set := model.SocialSet{}

	for _, category := range model.SocialCategories {
		for _, fn := range socialDirectGetters[category] {
			if v, ok := p.callString(ctx, token, fn); ok && classifyURL(v) != "" {
				set.Fill(category, v)
				break
			}
		}
	}

	if !set.Complete() {
		p.mineContractURI(ctx, token, set)
	}

	if !set.Complete() {
		p.mineMappingGetters(ctx, token, set)
	}

	if !set.Complete() {
		for _, fn := range socialTupleGetters {
			values, ok := p.callStringTuple(ctx, token, fn, len(model.SocialCategories))
			if !ok {
				continue
			}
			for i, category := range model.SocialCategories {
				if classifyURL(values[i]) != "" {
					set.Fill(category, values[i])
				}
			}
			break
		}
	}

	if !set.Complete() && len(txInput) > 0 {
		scanInputForSocials(txInput, set)
	}

	NormalizeSocials(set)
	return set
}

func (p *Probe) mineMappingGetters(ctx context.Context, token common.Address, set model.SocialSet) {
	for _, key := range p.cfg.SocialKeys {
		category := categoryForKey(key)
		if category == "" {
			continue
		}
		if _, ok := set[category]; ok {
			continue
		}
		for _, fn := range p.cfg.SocialMapGetters {
			if v, ok := p.callStringKeyed(ctx, token, fn, key); ok && classifyURL(v) != "" {
				set.Fill(category, v)
				break
			}
		}
		if _, ok := set[category]; ok {
			continue
		}
		for _, fn := range p.cfg.SocialMapGettersBytes32 {
			if v, ok := p.callBytes32Keyed(ctx, token, fn, key); ok && classifyURL(v) != "" {
				set.Fill(category, v)
				break
			}
		}
	}
}

// mineContractURI reads a contractURI-style getter and mines whatever
// JSON document it points at for social-looking values. The value is
// interpreted first as a base64 JSON data URI, else fetched over HTTP
// when it looks like a URL, else parsed as inline JSON text.
func (p *Probe) mineContractURI(ctx context.Context, token common.Address, set model.SocialSet) {
	for _, fn := range contractURIGetters {
		uri, ok := p.callString(ctx, token, fn)
		if !ok {
			continue
		}
		doc, ok := p.loadMetadataJSON(ctx, uri)
		if !ok {
			continue
		}
		mineJSONValues(doc, set)
		return
	}
}

func (p *Probe) loadMetadataJSON(ctx context.Context, uri string) (interface{}, bool) {
	uri = strings.TrimSpace(uri)

	if idx := strings.Index(uri, ";base64,"); strings.HasPrefix(uri, "data:") && idx >= 0 {
		raw, err := base64.StdEncoding.DecodeString(uri[idx+len(";base64,"):])
		if err != nil {
			return nil, false
		}
		return parseJSONDoc(raw)
	}

	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, false
		}
		resp, err := p.http.Do(req)
		if err != nil {
			p.logger.Debug("metadata fetch failed", zap.String("uri", uri), zap.Error(err))
			return nil, false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, false
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBody))
		if err != nil {
			return nil, false
		}
		return parseJSONDoc(body)
	}

	return parseJSONDoc([]byte(uri))
}

func parseJSONDoc(raw []byte) (interface{}, bool) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// mineJSONValues walks a decoded JSON document and fills still-empty
// categories from string values, preferring the key name over the URL
// shape when both say something.
func mineJSONValues(doc interface{}, set model.SocialSet) {
	switch v := doc.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if s, ok := child.(string); ok {
				category := categoryForKey(key)
				if category == "" {
					category = classifyURL(s)
				}
				if category != "" && classifyURL(s) != "" {
					set.Fill(category, s)
				}
				continue
			}
			mineJSONValues(child, set)
		}
	case []interface{}:
		for _, child := range v {
			mineJSONValues(child, set)
		}
	case string:
		if category := classifyURL(v); category != "" {
			set.Fill(category, v)
		}
	}
}

// scanInputForSocials extracts printable ASCII runs of length >= 4 from
// raw transaction input and classifies each as a URL category.
func scanInputForSocials(input []byte, set model.SocialSet) {
	var run []byte
	flush := func() {
		if len(run) >= 4 {
			s := string(run)
			if category := classifyURL(s); category != "" {
				set.Fill(category, s)
			}
		}
		run = run[:0]
	}
	for _, b := range input {
		if b > 0x20 && b < 0x7f {
			run = append(run, b)
			continue
		}
		flush()
	}
	flush()
}

// NormalizeSocials reclassifies ambiguous values: an X/Twitter URL can
// never stay in the website slot, and a non-X URL can never stay in the
// twitter slot. Classification wins over the getter a value arrived by.
func NormalizeSocials(set model.SocialSet) {
	if v, ok := set[model.SocialWebsite]; ok {
		if classifyURL(v) == model.SocialTwitter {
			delete(set, model.SocialWebsite)
			set.Fill(model.SocialTwitter, v)
		}
	}
	if v, ok := set[model.SocialTwitter]; ok {
		if category := classifyURL(v); category != model.SocialTwitter {
			delete(set, model.SocialTwitter)
			if category != "" {
				set.Fill(category, v)
			}
		}
	}
}
