package enums

// DispatchStatus tracks a courier dispatch as reported by the delivery provider.
type DispatchStatus string

const (
	DispatchStatusPending   DispatchStatus = "pending"
	DispatchStatusPickup    DispatchStatus = "pickup"
	DispatchStatusDropoff   DispatchStatus = "dropoff"
	DispatchStatusDelivered DispatchStatus = "delivered"
	DispatchStatusCanceled  DispatchStatus = "canceled"
)

// String implements fmt.Stringer.
func (d DispatchStatus) String() string {
	return string(d)
}
