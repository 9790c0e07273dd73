package tracking

import "github.com/freshveggie/veggie-api/internal/domain"

type StatusInfo struct {
	Message string `json:"message"`
	Color   string `json:"color"`
}

type Step struct {
	Step      domain.OrderStatus `json:"step"`
	Title     string             `json:"title"`
	Completed bool               `json:"completed"`
}

var statusInfo = map[domain.OrderStatus]StatusInfo{
	domain.OrderStatusPlaced:         {Message: "Order received", Color: "blue"},
	domain.OrderStatusConfirmed:      {Message: "Order confirmed", Color: "orange"},
	domain.OrderStatusPreparing:      {Message: "Preparing your order", Color: "yellow"},
	domain.OrderStatusOutForDelivery: {Message: "Out for delivery", Color: "purple"},
	domain.OrderStatusDelivered:      {Message: "Delivered", Color: "green"},
	domain.OrderStatusCancelled:      {Message: "Cancelled", Color: "red"},
}

var steps = []struct {
	status domain.OrderStatus
	title  string
}{
	{domain.OrderStatusPlaced, "Order Placed"},
	{domain.OrderStatusConfirmed, "Order Confirmed"},
	{domain.OrderStatusPreparing, "Preparing"},
	{domain.OrderStatusOutForDelivery, "Out for Delivery"},
	{domain.OrderStatusDelivered, "Delivered"},
}

func Info(status domain.OrderStatus) StatusInfo {
	if info, ok := statusInfo[status]; ok {
		return info
	}
	return StatusInfo{Message: "Unknown status", Color: "gray"}
}

// Timeline renders the five delivery steps. A step is completed when the
// order has reached it; the placed step is always completed.
func Timeline(status domain.OrderStatus) []Step {
	rank := status.Rank()
	out := make([]Step, 0, len(steps))
	for i, s := range steps {
		out = append(out, Step{
			Step:      s.status,
			Title:     s.title,
			Completed: i == 0 || (rank >= 0 && rank >= i),
		})
	}
	return out
}
