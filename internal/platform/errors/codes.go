// Package errors provides structured error handling for the cart drawer.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Network errors
	CodeNetwork Code = "NETWORK"

	// Reconciliation errors
	CodeDataInconsistency Code = "DATA_INCONSISTENCY"

	// Cart errors
	CodeCartLineNotFound       Code = "CART_LINE_NOT_FOUND"
	CodeCartInvalidLineIndex   Code = "CART_INVALID_LINE_INDEX"
	CodeCartInvalidQuantity    Code = "CART_INVALID_QUANTITY"
	CodeCartVariantNotFound    Code = "CART_VARIANT_NOT_FOUND"
	CodeCartSessionNotFound    Code = "CART_SESSION_NOT_FOUND"
	CodeCartMalformedResponse  Code = "CART_MALFORMED_RESPONSE"
	CodeCartMutationInFlight   Code = "CART_MUTATION_IN_FLIGHT"
	CodeCartNoteTooLong        Code = "CART_NOTE_TOO_LONG"
	CodeCartCatalogUnavailable Code = "CART_CATALOG_UNAVAILABLE"

	// Discount errors
	CodeDiscountInvalidCode Code = "DISCOUNT_INVALID_CODE"
	CodeDiscountNoToken     Code = "DISCOUNT_NO_TOKEN"
	CodeDiscountExpired     Code = "DISCOUNT_TOKEN_EXPIRED"

	// Promotion errors
	CodePromoRuleInvalid Code = "PROMO_RULE_INVALID"
	CodePromoGiftPresent Code = "PROMO_GIFT_ALREADY_PRESENT"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps an error code to an HTTP status code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeCartLineNotFound, CodeCartVariantNotFound, CodeCartSessionNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeCartInvalidLineIndex, CodeCartInvalidQuantity, CodeCartNoteTooLong, CodeDiscountInvalidCode, CodePromoRuleInvalid:
		return http.StatusUnprocessableEntity
	case CodeCartMutationInFlight:
		return http.StatusConflict
	case CodeDiscountNoToken, CodeDiscountExpired:
		return http.StatusUnauthorized
	case CodeNetwork, CodeCartCatalogUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
