package templates

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// LineFacts are the identifying facts a rendered line fragment carries in
// its data attributes.
type LineFacts struct {
	VariantID int64
	LineKey   string
	LineIndex int
	Quantity  int
}

// ParseLineFacts reads the identifying data attributes back out of a
// rendered line fragment. Parsing a fragment this package rendered returns
// exactly the facts it was rendered with.
func ParseLineFacts(markup string) (LineFacts, error) {
	node, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return LineFacts{}, apperrors.Wrap(apperrors.CodeDataInconsistency, "parse line fragment", err)
	}

	item := findByClass(node, "voo-cart-item")
	if item == nil {
		return LineFacts{}, apperrors.New(apperrors.CodeDataInconsistency, "fragment holds no cart item")
	}

	facts := LineFacts{LineKey: attr(item, "data-line-key")}
	facts.VariantID, err = strconv.ParseInt(attr(item, "data-variant-id"), 10, 64)
	if err != nil {
		return LineFacts{}, apperrors.Wrap(apperrors.CodeDataInconsistency, "parse variant id", err)
	}
	facts.LineIndex, err = strconv.Atoi(attr(item, "data-line-index"))
	if err != nil {
		return LineFacts{}, apperrors.Wrap(apperrors.CodeDataInconsistency, "parse line index", err)
	}
	facts.Quantity, err = strconv.Atoi(attr(item, "data-quantity"))
	if err != nil {
		return LineFacts{}, apperrors.Wrap(apperrors.CodeDataInconsistency, "parse quantity", err)
	}
	return facts, nil
}

func findByClass(node *html.Node, class string) *html.Node {
	if node.Type == html.ElementNode {
		for _, a := range node.Attr {
			if a.Key == "class" && hasClass(a.Val, class) {
				return node
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findByClass(child, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
