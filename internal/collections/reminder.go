package collections

import (
	"fmt"
	"strings"
)

// ReminderFor selects the reminder template by days overdue. ok is false when
// the receivable is not overdue.
func ReminderFor(daysOverdue int) (LogType, bool) {
	switch {
	case daysOverdue <= 0:
		return "", false
	case daysOverdue <= 7:
		return LogReminder7d, true
	case daysOverdue <= 15:
		return LogReminder15d, true
	default:
		return LogReminder30d, true
	}
}

// Subject returns the email subject for the reminder template.
func (m ReminderMessage) Subject() string {
	switch m.Template {
	case LogReminder7d:
		return fmt.Sprintf("Rappel de paiement - BL %s", m.InvoiceNumber)
	case LogReminder15d:
		return fmt.Sprintf("Second rappel - BL %s en retard", m.InvoiceNumber)
	default:
		return fmt.Sprintf("Dernier rappel avant mise en demeure - BL %s", m.InvoiceNumber)
	}
}

// Body renders the plain text email body.
func (m ReminderMessage) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", m.ClientName)
	fmt.Fprintf(&b, "Sauf erreur de notre part, le bon de livraison %s d'un montant de %s DH, échu le %s, reste impayé depuis %d jour(s).\n\n",
		m.InvoiceNumber, m.AmountDue.StringFixed(2), m.DueDate.Format("02/01/2006"), m.DaysOverdue)
	switch m.Template {
	case LogReminder7d:
		b.WriteString("Nous vous remercions de bien vouloir procéder à son règlement dans les meilleurs délais.\n")
	case LogReminder15d:
		b.WriteString("Malgré notre premier rappel, ce montant reste dû. Merci de régulariser votre situation sous 7 jours.\n")
	default:
		b.WriteString("Sans règlement de votre part, nous serons contraints d'engager une procédure de recouvrement et de suspendre vos livraisons.\n")
	}
	b.WriteString("\nCordialement,\nService recouvrement\n")
	return b.String()
}
