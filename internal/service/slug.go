package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify transliterates s to ASCII and keeps lowercase alphanumerics
// separated by single dashes.
func slugify(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// truncateSlug cuts s to n bytes without leaving a trailing dash.
func truncateSlug(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimRight(s, "-")
}

// uniqueSlug derives a slug from title that no stored listing uses yet.
// Collisions get -2, -3, ... with the base shortened to stay within SlugMaxLen.
func uniqueSlug(ctx context.Context, listings repository.ListingRepository, title string) (string, error) {
	base := truncateSlug(slugify(title), model.SlugMaxLen)
	if base == "" {
		base = "listing"
	}

	candidate := base
	for n := 2; ; n++ {
		exists, err := listings.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		suffix := "-" + strconv.Itoa(n)
		candidate = truncateSlug(base, model.SlugMaxLen-len(suffix)) + suffix
	}
}
