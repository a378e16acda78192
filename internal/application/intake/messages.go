package intake

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vitrina/stockbot/internal/domain/intake"
)

// All user-facing texts live here. The group speaks Spanish; prices are
// rendered with es-CO digit grouping ("$150.000").

var esCO = language.MustParse("es-CO")

func newPricePrinter() *message.Printer {
	return message.NewPrinter(esCO)
}

func (s *Service) formatPrice(price int64) string {
	return s.printer.Sprintf("$%d", price)
}

const listeningNotice = "🤖 Bot escuchando."

const shutdownNotice = "🤖 Bot apagándose."

const formatErrorNotice = "⚠️ Formato de mensaje incorrecto. Use: `DESCRIPCIÓN #REFERENCIA - PRECIO`"

func waitLoopMessage(hostID string) string {
	hostHandle, _, _ := strings.Cut(hostID, "@")
	return fmt.Sprintf("🤖 Esperando al anfitrión (@%s) para iniciar.\n\n"+
		"*Instrucciones:*\nEnvía un mensaje que contenga:\n"+
		"1.  La *imagen* del producto.\n"+
		"2.  El texto en el formato: `DESCRIPCIÓN #REFERENCIA - PRECIO`\n\n"+
		"*Ejemplo:*\n`Botines de cuero para dama #678 - 150000`\n\n"+
		"_El bot detectará la categoría automáticamente desde la descripción._\n"+
		"_El anfitrión puede cancelar el proceso en cualquier momento enviando ✖️_",
		hostHandle)
}

func (s *Service) instructionsMessage(post intake.ParsedHostPost, example string) string {
	return fmt.Sprintf("*Producto Recibido:*\n- 👞 *%s*\n- Referencia: *#%s*\n- 💸 *Precio:* %s\n\n"+
		"Por favor, cada sede envíe sus tallas y cantidades.\n\n"+
		"*Formato:* `TALLA:CANTIDAD` (si no especifica cantidad, será 1).\n"+
		"*Ejemplo:* %s\n\n"+
		"_Si no hay existencias, responda con: *Referencia Libre*_",
		post.Description, post.Reference, s.formatPrice(post.Price), example)
}

func invalidTokensMessage(rejected []string) string {
	return fmt.Sprintf("Entrada inválida: *%s*. Revise las tallas y el formato (TALLA:CANTIDAD).",
		strings.Join(rejected, ", "))
}

func cancelNotice(reason string) string {
	return fmt.Sprintf("🔄 Proceso cancelado. %s", reason)
}

func publishSuccessNotice(description, reference string) string {
	return fmt.Sprintf("✅ ¡Todo confirmado! El producto \"%s #%s\" ha sido creado en la tienda con inventario por sede.",
		description, reference)
}

const publishFailureNotice = "❌ Ocurrió un error al subir el producto a la tienda. " +
	"La sesión ha sido guardada en el log para revisión manual."

// summaryMessage renders the live per-branch summary. It is re-rendered and
// edited in place every time a branch submits or corrects its stock.
func (s *Service) summaryMessage(session *intake.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Resumen de Producto:*\n- Descripción: %s\n- Referencia: #%s\n- Precio: %s\n- Categoría (detectada): %s\n\n*Variantes por Sede:*\n",
		session.Product.Description,
		session.Product.Reference,
		s.formatPrice(session.Product.Price),
		session.Category,
	)

	for _, branchID := range session.Branches() {
		resp := session.Response(branchID)
		text := "(esperando respuesta)"
		switch {
		case resp.NoStock:
			text = intake.NoStockMarker
		case len(resp.Variants) > 0:
			parts := make([]string, len(resp.Variants))
			for i, v := range resp.Variants {
				parts[i] = fmt.Sprintf("%s(%d)", v.Size, v.Stock)
			}
			text = strings.Join(parts, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s\n", s.branchNames[branchID], text)
	}

	b.WriteString("\nSi algo es incorrecto, simplemente reenvíe las tallas corregidas para su sede.")
	b.WriteString("\nSi todo es correcto, por favor envíen 👍🏻 para confirmar.")
	return b.String()
}
