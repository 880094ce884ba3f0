package bot

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"freres-bot/internal/models"
)

// buildCategories snapshots the distinct catalog categories into
// pending_categories and returns the listing text. The caller decides the
// resulting state.
func (e *Engine) buildCategories(ctx context.Context, s *models.Session) (string, error) {
	products, err := e.catalog.ListProducts(ctx)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool)
	var categories []string
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "Sin categoria"
		}
		if !seen[cat] {
			seen[cat] = true
			categories = append(categories, cat)
		}
	}
	sort.Strings(categories)

	s.PendingCategories = categories
	return replyCategoryList(categories), nil
}

// resolveCategory maps a message to one of the pending categories, by
// 1-based numeric index first, then by substring match against the
// normalized category name.
func resolveCategory(msg string, pending []string) string {
	if idx, err := strconv.Atoi(msg); err == nil {
		if idx >= 1 && idx <= len(pending) {
			return pending[idx-1]
		}
		return ""
	}

	for _, c := range pending {
		if strings.Contains(msg, Normalize(c)) {
			return c
		}
	}
	return ""
}

// enterCategory snapshots the category's products and starts paging. The
// snapshot is fixed for the whole browse episode; catalog changes mid-paging
// are not picked up.
func (e *Engine) enterCategory(ctx context.Context, s *models.Session, category string) ([]models.Reply, error) {
	products, err := e.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	var list []models.Product
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	if len(list) == 0 {
		// Category stays pending; it is only removed by the exhaustion
		// handler.
		return textReplies(replyEmptyCategory), nil
	}

	s.CurrentCategory = category
	s.CategoryProducts = list
	s.ProductCursor = 0
	s.State = models.StateBrowsingProduct

	return e.showProduct(ctx, s)
}

// showProduct emits the product at the cursor, or runs the exhaustion
// handler when the cursor has passed the last product.
func (e *Engine) showProduct(ctx context.Context, s *models.Session) ([]models.Reply, error) {
	if s.ProductCursor >= len(s.CategoryProducts) {
		return e.finishCategory(ctx, s)
	}

	p := s.CategoryProducts[s.ProductCursor]

	var replies []models.Reply
	if p.ImageURL != "" {
		replies = append(replies, models.ImageReply(p.ImageURL))
	}
	replies = append(replies, models.TextReply(replyProductCard(p)))
	return replies, nil
}

// finishCategory handles category exhaustion: drop the category from the
// pending list, then either offer the remaining categories, finalize a
// non-empty cart, or return to logged_in.
func (e *Engine) finishCategory(ctx context.Context, s *models.Session) ([]models.Reply, error) {
	// The customer may have typed a finalize synonym right at the category
	// boundary; honor it before offering more categories.
	if containsAny(s.LastMessage, finalizeWords) && len(s.Cart) > 0 {
		return e.finalize(ctx, s)
	}

	current := s.CurrentCategory
	remaining := s.PendingCategories[:0]
	for _, c := range s.PendingCategories {
		if c != current {
			remaining = append(remaining, c)
		}
	}
	s.PendingCategories = remaining
	s.CurrentCategory = ""
	s.CategoryProducts = nil
	s.ProductCursor = 0

	if len(s.PendingCategories) > 0 {
		s.State = models.StateChoosingCategory
		return textReplies(replyCategoryDone(current, s.PendingCategories)), nil
	}

	if len(s.Cart) > 0 {
		return e.finalize(ctx, s)
	}

	s.State = models.StateLoggedIn
	return textReplies(replyNothingAdded), nil
}

// handleBrowsing implements the in-category protocol: skip words advance the
// cursor; otherwise the message is resolved to a product id through the
// three accepted forms and added to the cart.
func (e *Engine) handleBrowsing(ctx context.Context, s *models.Session, msg string) ([]models.Reply, error) {
	if equalsAny(msg, skipWords) {
		s.ProductCursor++
		return e.showProduct(ctx, s)
	}

	tokens := strings.Fields(msg)
	if len(tokens) == 0 {
		return textReplies(replyBrowseHelp), nil
	}

	var productID string
	switch {
	case equalsAny(tokens[0], affirmationWords):
		if len(tokens) > 1 && looksLikeProductID(tokens[1]) {
			productID = tokens[1]
		} else if s.ProductCursor < len(s.CategoryProducts) {
			// Bare "si" accepts the product on screen.
			productID = s.CategoryProducts[s.ProductCursor].ID
		}

	case tokens[0] == orderTokenWord && len(tokens) > 1:
		productID = tokens[1]

	case len(tokens) == 1 && looksLikeProductID(msg):
		productID = msg
	}

	if productID == "" {
		return textReplies(replyBrowseHelp), nil
	}

	item, err := e.orders.AddItem(ctx, s, productID)
	if errors.Is(err, models.ErrProductNotFound) {
		return textReplies(replyUnknownProduct), nil
	}
	if err != nil {
		return nil, err
	}

	s.ProductCursor++

	next, err := e.showProduct(ctx, s)
	if err != nil {
		return nil, err
	}
	return append(textReplies(replyAddedToCart(item.Name)), next...), nil
}
