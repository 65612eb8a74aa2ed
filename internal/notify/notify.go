// Package notify dispatches order-confirmation notifications over two
// independent channels (customer SMS, admin email). Delivery is best
// effort: each channel retries with exponential backoff and gives up after
// a bounded number of attempts. A failed notification never affects the
// order that triggered it.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"duka/internal/domain"
	applog "duka/internal/log"
	"duka/internal/repos"
)

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(to, message string) error
}

// EmailSender delivers a plain-text email.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type Dispatcher struct {
	Orders    *repos.OrderRepo
	Customers *repos.CustomerRepo
	SMS       SMSSender
	Email     EmailSender

	AdminEmail string
	// MaxAttempts per channel; Backoff is the first retry delay and doubles
	// each attempt. Zero values fall back to 3 attempts / 1 minute.
	MaxAttempts int
	Backoff     time.Duration
}

func (d *Dispatcher) maxAttempts() int {
	if d.MaxAttempts > 0 {
		return d.MaxAttempts
	}
	return 3
}

func (d *Dispatcher) backoff() time.Duration {
	if d.Backoff > 0 {
		return d.Backoff
	}
	return time.Minute
}

// Dispatch sends both channels for a confirmed order, concurrently, and
// returns when both have either succeeded or exhausted their retries.
// Callers that must not block run it in a goroutine.
func (d *Dispatcher) Dispatch(orderID string) {
	order, err := d.Orders.Get(orderID)
	if err != nil {
		applog.Error(nil, "notify.load_order", err, map[string]any{"order_id": orderID})
		return
	}
	items, err := d.Orders.Items(orderID)
	if err != nil {
		applog.Error(nil, "notify.load_items", err, map[string]any{"order_id": orderID})
		return
	}
	customer, err := d.Customers.ByID(order.CustomerID)
	if err != nil {
		applog.Error(nil, "notify.load_customer", err, map[string]any{"order_id": orderID})
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.sendSMS(order, *customer)
	}()
	go func() {
		defer wg.Done()
		d.sendAdminEmail(order, *customer, items)
	}()
	wg.Wait()
}

func (d *Dispatcher) sendSMS(order domain.Order, customer domain.Customer) {
	if d.SMS == nil {
		return
	}
	to := FormatPhone(customer.Phone)
	msg := smsMessage(order)
	err := d.withRetry("notify.sms", order.OrderNumber, func() error {
		return d.SMS.SendSMS(to, msg)
	})
	if err != nil {
		return
	}
	if err := d.Orders.MarkSMSSent(order.ID); err != nil {
		applog.Error(nil, "notify.sms.flag", err, map[string]any{"order_id": order.ID})
	}
}

func (d *Dispatcher) sendAdminEmail(order domain.Order, customer domain.Customer, items []domain.OrderItem) {
	if d.Email == nil || d.AdminEmail == "" {
		return
	}
	subject := fmt.Sprintf("New Order: #%s - KES %s", order.OrderNumber, order.TotalAmount.StringFixed(2))
	body := adminEmailBody(order, customer, items)
	err := d.withRetry("notify.email", order.OrderNumber, func() error {
		return d.Email.SendEmail(d.AdminEmail, subject, body)
	})
	if err != nil {
		return
	}
	if err := d.Orders.MarkEmailSent(order.ID); err != nil {
		applog.Error(nil, "notify.email.flag", err, map[string]any{"order_id": order.ID})
	}
}

// withRetry runs fn up to maxAttempts times, sleeping backoff, 2*backoff,
// 4*backoff, ... between attempts. The final error is logged and returned.
func (d *Dispatcher) withRetry(action, orderNumber string, fn func() error) error {
	var err error
	delay := d.backoff()
	for attempt := 1; attempt <= d.maxAttempts(); attempt++ {
		if err = fn(); err == nil {
			applog.Info(nil, action+".sent", map[string]any{"order_number": orderNumber, "attempt": attempt})
			return nil
		}
		if attempt < d.maxAttempts() {
			time.Sleep(delay)
			delay *= 2
		}
	}
	applog.Error(nil, action+".gave_up", err, map[string]any{
		"order_number": orderNumber,
		"attempts":     d.maxAttempts(),
	})
	return err
}

func smsMessage(order domain.Order) string {
	return fmt.Sprintf("Order confirmed! #%s\nTotal: KES %s\nThank you for shopping with us!",
		order.OrderNumber, order.TotalAmount.StringFixed(2))
}

func adminEmailBody(order domain.Order, customer domain.Customer, items []domain.OrderItem) string {
	address := order.DeliveryAddress
	if address == "" {
		address = "Not provided"
	}
	notes := order.DeliveryNotes
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf(`New Order Received

Customer: %s (%s)
Phone: %s

Order: %s
Total: KES %s
Items: %d

Address: %s
Notes: %s
`, customer.Name, customer.Email, FormatPhone(customer.Phone),
		order.OrderNumber, order.TotalAmount.StringFixed(2), domain.ItemCount(items),
		address, notes)
}

// FormatPhone normalizes a Kenyan phone number to +254 form: "0712345678"
// becomes "+254712345678", bare "712345678" gets the prefix, and numbers
// already in international form pass through.
func FormatPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n := digits.String()
	switch {
	case strings.HasPrefix(phone, "+"):
		return "+" + n
	case strings.HasPrefix(n, "254"):
		return "+" + n
	case strings.HasPrefix(n, "0") && len(n) == 10:
		return "+254" + n[1:]
	case len(n) == 9:
		return "+254" + n
	default:
		return phone
	}
}

// LogSMSSender and LogEmailSender write the message to the structured log
// instead of a provider API. They stand in wherever real credentials are
// not configured.
type LogSMSSender struct{ SenderID string }

func (s *LogSMSSender) SendSMS(to, message string) error {
	applog.Info(nil, "sms.log_sink", map[string]any{"sender": s.SenderID, "to": to, "message": message})
	return nil
}

type LogEmailSender struct{ From string }

func (s *LogEmailSender) SendEmail(to, subject, body string) error {
	applog.Info(nil, "email.log_sink", map[string]any{"from": s.From, "to": to, "subject": subject})
	return nil
}
