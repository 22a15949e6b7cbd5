package credit

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoticeDeadlineDays is the payment delay granted by a mise en demeure.
const NoticeDeadlineDays = 8

var frenchPrinter = message.NewPrinter(language.French)

// FormatAmount renders an amount with French grouping, e.g. "12 500,00 DH".
func FormatAmount(n Notice) string {
	return frenchPrinter.Sprintf("%.2f DH", n.Amount.InexactFloat64())
}

// RenderNotice builds the text of a formal demand.
func RenderNotice(n Notice) string {
	deadline := n.GeneratedAt.AddDate(0, 0, NoticeDeadlineDays)
	var b strings.Builder
	b.WriteString("MISE EN DEMEURE DE PAYER\n\n")
	b.WriteString("Le " + frDate(n.GeneratedAt) + "\n\n")
	b.WriteString("À l'attention de " + n.ClientName + "\n\n")
	b.WriteString("Objet : mise en demeure de payer\n\n")
	b.WriteString("Madame, Monsieur,\n\n")
	frenchPrinter.Fprintf(&b, "Malgré nos relances, nous constatons que vous restez redevable de la somme de %s, ", FormatAmount(n))
	b.WriteString("au titre de factures échues depuis le " + frDate(n.OldestOverdueDate) + ".\n\n")
	frenchPrinter.Fprintf(&b, "Nous vous mettons en demeure de régler cette somme dans un délai de %d jours, soit au plus tard le %s.\n\n", NoticeDeadlineDays, frDate(deadline))
	b.WriteString("À défaut de règlement dans ce délai, nous nous réservons le droit d'engager toute procédure judiciaire utile au recouvrement de notre créance, ")
	b.WriteString("et de suspendre toute nouvelle livraison.\n\n")
	b.WriteString("Veuillez agréer, Madame, Monsieur, l'expression de nos salutations distinguées.\n\n")
	b.WriteString("Service recouvrement\n")
	return b.String()
}

func frDate(t time.Time) string {
	return t.UTC().Format("02/01/2006")
}
