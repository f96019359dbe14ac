package checkout

// Metadata keys stamped on every payment intent. The order materializer
// reads these back to rebuild and verify the charge breakdown.
const (
	MetaSessionID    = "session_id"
	MetaDeliveryType = "delivery_type"
	MetaQuoteID      = "quote_id"
	MetaSubtotal     = "subtotal_cents"
	MetaDiscount     = "discount_cents"
	MetaDiscountCode = "discount_code"
	MetaTax          = "tax_cents"
	MetaDeliveryFee  = "delivery_fee_cents"
)
