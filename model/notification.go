package model

import (
	"fmt"
	"strings"
)

// ============================================================================
// EMAIL TEMPLATES
// ============================================================================

// EmailTemplate represents an email to be sent (logged to console)
type EmailTemplate struct {
	To      string
	Subject string
	Body    string
}

func (nr *NotificationRequest) stayLines() string {
	breakfast := "not included"
	if nr.BookingData.Breakfast {
		breakfast = "included"
	}

	return "Room: " + nr.BookingData.RoomName + "\n" +
		"Check-in: " + nr.BookingData.CheckIn.Format("2006-01-02") + "\n" +
		"Check-out: " + nr.BookingData.CheckOut.Format("2006-01-02") + "\n" +
		fmt.Sprintf("Nights: %d\n", nr.BookingData.Nights) +
		fmt.Sprintf("Guests: %d\n", nr.BookingData.Guests) +
		"Breakfast: " + breakfast + "\n" +
		fmt.Sprintf("Total: EUR %.2f\n", nr.BookingData.TotalPrice) +
		"Booking ID: " + nr.BookingData.BookingID + "\n"
}

// GenerateBookingReceivedEmail is sent when a pending booking is created
func (nr *NotificationRequest) GenerateBookingReceivedEmail() *EmailTemplate {
	body := "Dear " + nr.BookingData.CustomerName + ",\n\n" +
		"We have reserved your stay while your payment is processed.\n\n" +
		nr.stayLines() + "\n" +
		"You will receive a confirmation as soon as the payment is completed.\n\n" +
		"Villa Reservations"

	return &EmailTemplate{
		To:      nr.RecipientEmail,
		Subject: "Booking Received - " + nr.BookingData.RoomName,
		Body:    body,
	}
}

// GenerateBookingConfirmationEmail creates email content for a paid booking
func (nr *NotificationRequest) GenerateBookingConfirmationEmail() *EmailTemplate {
	body := "Dear " + nr.BookingData.CustomerName + ",\n\n" +
		"Your booking has been confirmed!\n\n" +
		nr.stayLines() + "\n" +
		"We look forward to welcoming you.\n\n" +
		"Villa Reservations"

	return &EmailTemplate{
		To:      nr.RecipientEmail,
		Subject: "Booking Confirmed - " + nr.BookingData.RoomName,
		Body:    body,
	}
}

// GeneratePaymentFailedEmail creates email content for a failed payment
func (nr *NotificationRequest) GeneratePaymentFailedEmail() *EmailTemplate {
	body := "Dear " + nr.BookingData.CustomerName + ",\n\n" +
		"We're sorry, but the payment for your booking did not go through.\n\n" +
		"Room: " + nr.BookingData.RoomName + "\n" +
		"Booking ID: " + nr.BookingData.BookingID + "\n\n" +
		"The dates have been released. Please try booking again or contact us.\n\n" +
		"Villa Reservations"

	return &EmailTemplate{
		To:      nr.RecipientEmail,
		Subject: "Payment Failed - " + nr.BookingData.RoomName,
		Body:    body,
	}
}

// GenerateEmail picks the template for the notification type
func (nr *NotificationRequest) GenerateEmail() (*EmailTemplate, error) {
	switch nr.Type {
	case NotificationBookingCreated:
		return nr.GenerateBookingReceivedEmail(), nil
	case NotificationPaymentConfirmed:
		return nr.GenerateBookingConfirmationEmail(), nil
	case NotificationPaymentFailed:
		return nr.GeneratePaymentFailedEmail(), nil
	default:
		return nil, fmt.Errorf("unknown notification type: %s", nr.Type)
	}
}

// String renders the email the way the mock sender logs it
func (e *EmailTemplate) String() string {
	var b strings.Builder
	b.WriteString("To: " + e.To + "\n")
	b.WriteString("Subject: " + e.Subject + "\n\n")
	b.WriteString(e.Body)
	return b.String()
}
