package bot

import (
	"fmt"
	"strings"

	"freres-bot/internal/models"
)

// Static reply texts and builders. Texts mirror the shop's Messenger voice.

const (
	replyGreeting = "👋 Hola, soy Frere's Collection.\n\n" +
		"Puedo ayudarte con:\n" +
		"🛍 Catalogo\n" +
		"📝 Registrar\n" +
		"🔐 Iniciar sesion\n" +
		"📦 Consultar pedido\n" +
		"🕒 Horario\n" +
		"📞 Contacto"

	replyContact = "📱 WhatsApp: *+52 55 1234 5678*"
	replyHours   = "🕒 Lunes a sábado: 10 AM – 7 PM."

	replyFallback = "🤔 No entendí.\n\n" +
		"Puedo ayudarte con:\n" +
		"🛍 Catalogo\n" +
		"📝 Registrar\n" +
		"🔐 Iniciar sesion\n" +
		"📦 Consultar pedido\n" +
		"🕒 Horario\n" +
		"📞 Contacto"

	replyAskName       = "📝 ¿Cuál es tu nombre completo?"
	replyAskPhone      = "📱 Escribe tu número telefónico (10 dígitos)."
	replyInvalidPhone  = "❌ Número inválido. Escribe 10 dígitos."
	replyAskAddress    = "📍 Escribe tu dirección completa."
	replyAskLoginPhone = "🔐 Escribe tu número registrado."
	replyNotRegistered = "❌ Número no registrado. Escribe *registrar* para crear tu cuenta."

	replyEmptyCart       = "🛍 Tu carrito está vacío. Agrega un producto."
	replyInvalidCategory = "❌ Categoría no válida. Escribe el número o nombre de una categoría."
	replyEmptyCategory   = "❌ No hay productos en esa categoría. Elige otra."
	replyUnknownProduct  = "❌ Ese ID no existe."
	replyOrderNotFound   = "❌ Pedido no encontrado."
	replyLookupUsage     = "❗ Usa: *consultar ID_DEL_PEDIDO*\nEjemplo: consultar PED-a1b2c3d4"
	replyStoreTrouble    = "⚠️ Tenemos un problema técnico. Intenta de nuevo más tarde."

	replyBrowseHelp = "🤔 No entendí.\n" +
		"Puedes escribir:\n" +
		"• si ID\n" +
		"• pedido ID\n" +
		"• ID solo\n" +
		"• no (para avanzar)\n" +
		"• finalizar pedido"

	replyAskDelivery = "📦 ¿Cómo deseas recibirlo?\n" +
		"• Domicilio\n" +
		"• Recoger en tienda\n\n" +
		"Escribe una opción."
)

func replyRegistered(name string) string {
	return fmt.Sprintf("✨ Registro completado, %s.", name)
}

func replyWelcomeBack(name string) string {
	return fmt.Sprintf("✨ Bienvenido de nuevo, %s.", name)
}

func replyCategoryList(categories []string) string {
	var b strings.Builder
	b.WriteString("🛍 *Categorías disponibles:*\n\n")
	for i, c := range categories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\n👉 Escribe el número o nombre de la categoría.")
	return b.String()
}

func replyCategoryDone(category string, remaining []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✔ Ya no hay más productos en *%s*.\n\nOtras categorías:\n", category)
	for i, c := range remaining {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\n👉 Escribe otra categoría o *finalizar pedido*.")
	return b.String()
}

const replyNothingAdded = "No agregaste productos. Escribe *catalogo* para comenzar."

func replyProductCard(p models.Product) string {
	return fmt.Sprintf(
		"🔹 *%s*\n💰 $%s MXN\n🆔 ID: %s\n\n"+
			"Para agregarlo al pedido puedes escribir:\n"+
			"• si %s\n"+
			"• pedido %s\n"+
			"• o solo el ID: %s\n\n"+
			"Para pasar al siguiente: *no* o *siguiente*\n"+
			"Para terminar: *finalizar pedido*",
		p.Name, p.Price, p.ID, p.ID, p.ID, p.ID)
}

func replyAddedToCart(name string) string {
	return fmt.Sprintf("🛒 *%s* agregado al pedido.", name)
}

func replyOrderRegistered(orderID string) string {
	return fmt.Sprintf("🧾 *Pedido registrado*: %s\n\n%s", orderID, replyAskDelivery)
}

func replyHomeDelivery(orderID string) string {
	return fmt.Sprintf("🚚 Enviado a domicilio.\n🧾 ID: %s", orderID)
}

func replyPickup(orderID string) string {
	return fmt.Sprintf("🏬 Listo para recoger en tienda.\n🧾 ID: %s", orderID)
}

const replyInvalidDelivery = "❌ Escribe *domicilio* o *recoger en tienda*."

func replyOrderDetail(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Pedido %s*\n📌 Estado: %s\n📦 Productos:\n", order.ID, order.Status)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "• %s – $%s (ID: %s)\n", it.Name, it.Price, it.ProductID)
	}
	fmt.Fprintf(&b, "\n💵 Total: $%.2f", order.Total)
	return b.String()
}
