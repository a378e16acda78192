package intake

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// hostPostPattern matches the host's product announcement:
// "DESCRIPCIÓN #REFERENCIA - PRECIO" where the price may carry grouping
// punctuation ("150.000", "$89,000").
var hostPostPattern = regexp.MustCompile(`^(.*)#(\S+)\s*-\s*([0-9.,$]+)$`)

// priceGroupingReplacer strips grouping punctuation before the price is parsed.
var priceGroupingReplacer = strings.NewReplacer(".", "", ",", "", "$", "")

// thumbsUpVariants lists every accepted confirmation reaction (all skin tones).
const thumbsUpVariants = "👍👍🏻👍🏼👍🏽👍🏾👍🏿"

// noStockPhrase is the literal a branch sends when it has no inventory
// for the announced reference.
const noStockPhrase = "referencia libre"

// CancelLiteral is the host-only command that aborts the active session.
const CancelLiteral = "✖️"

// NoStockMarker is the sentinel stored as a branch response when the branch
// declared "referencia libre".
const NoStockMarker = "Referencia Libre"

// ParsedHostPost is the structured form of a valid host product announcement.
type ParsedHostPost struct {
	Description string `json:"description"`
	Reference   string `json:"reference"`
	Price       int64  `json:"price"`
}

// VariantToken is a single accepted size/stock pair from a branch submission.
type VariantToken struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// ParseHostPost parses a host announcement into its structured form.
// The boolean result is false when the text is not a product post, including
// the case where the trailing price group does not reduce to an integer.
func ParseHostPost(text string) (ParsedHostPost, bool) {
	match := hostPostPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return ParsedHostPost{}, false
	}

	description := strings.TrimSpace(match[1])
	reference := strings.TrimSpace(match[2])
	price, err := strconv.ParseInt(priceGroupingReplacer.Replace(strings.TrimSpace(match[3])), 10, 64)
	if err != nil || price < 0 {
		return ParsedHostPost{}, false
	}

	return ParsedHostPost{
		Description: capitalizeFirst(description),
		Reference:   reference,
		Price:       price,
	}, true
}

// ParseVariantLine splits a branch submission into accepted variant tokens and
// rejected raw tokens. Tokens have the form "SIZE" or "SIZE:QUANTITY"; the
// quantity defaults to 1. A size is valid only if present in validVariants.
//
// Acceptance is all-or-nothing: callers must discard the whole submission when
// rejected is non-empty and ask the branch to resend a fully valid line.
func ParseVariantLine(text string, validVariants []string) (accepted []VariantToken, rejected []string) {
	valid := make(map[string]struct{}, len(validVariants))
	for _, v := range validVariants {
		valid[v] = struct{}{}
	}

	for _, raw := range strings.Fields(text) {
		token := strings.ToUpper(raw)
		size, qty, hasQty := strings.Cut(token, ":")

		stock := 1
		ok := true
		if hasQty {
			n, err := strconv.Atoi(qty)
			if err != nil || n <= 0 {
				ok = false
			}
			stock = n
		}
		if _, known := valid[size]; !known {
			ok = false
		}

		if ok {
			accepted = append(accepted, VariantToken{Size: size, Stock: stock})
		} else {
			rejected = append(rejected, token)
		}
	}
	return accepted, rejected
}

// IsCancel reports whether the message body is the cancel command.
func IsCancel(text string) bool {
	return strings.TrimSpace(text) == CancelLiteral
}

// IsConfirmation reports whether the message body is a thumbs-up reaction in
// any skin tone. Mirrors the containment check the chat clients produce: a
// bare thumbs-up or a tone-modified one, nothing else.
func IsConfirmation(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && strings.Contains(thumbsUpVariants, trimmed)
}

// IsNoStock reports whether the message body declares the branch has no stock.
func IsNoStock(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), noStockPhrase)
}

func capitalizeFirst(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
