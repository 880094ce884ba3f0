package bot

import (
	"strings"

	"freres-bot/internal/models"
)

// Keyword tables driving the matching cascade. Kept as named variables so
// the policy is auditable and testable on its own. All matching runs on
// normalized text.
var (
	// finalizeWords trigger the universal finalize override (substring
	// containment, like the rest of the global intents).
	finalizeWords = []string{"finalizar pedido", "cerrar pedido", "finalizar", "terminar", "cerrar", "fin", "ya"}

	greetingWords = []string{"hola", "buenas", "hello"}
	contactWords  = []string{"contacto", "whatsapp"}
	hoursWords    = []string{"horario"}
	catalogWords  = []string{"catalogo"}

	// registerCommands and loginCommand start their flows from any state.
	registerCommands = []string{"registrar", "crear cuenta", "soy nuevo", "soy nueva"}
	loginPrefix      = "iniciar sesion"
	loginCommand     = "entrar"

	// skipWords advance the browsing cursor (exact message match).
	skipWords = []string{"no", "siguiente", "next", "n", "skip"}

	affirmationWords = []string{"si"}
	orderTokenWord   = "pedido"

	lookupPrefixes = []string{"consultar", "ver pedido", "estado pedido"}

	homeDeliveryWords = []string{"domicilio"}
	pickupWords       = []string{"recoger", "tienda"}
)

// finalizeStates are the only states where the universal finalize override
// applies. Registration and login are excluded: finalizing with an
// incomplete identity is ill-defined. The delivery question is excluded so
// a stray "ya" cannot re-finalize an already cleared cart.
var finalizeStates = map[string]bool{
	models.StateLoggedIn:         true,
	models.StateChoosingCategory: true,
	models.StateBrowsingProduct:  true,
}

// maxProductIDDigits bounds a bare numeric message accepted as a product id,
// so longer generated order identifiers are never misread as products.
const maxProductIDDigits = 4

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func equalsAny(msg string, words []string) bool {
	for _, w := range words {
		if msg == w {
			return true
		}
	}
	return false
}

func hasAnyPrefix(msg string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}

// looksLikeProductID reports whether a token has the shape of a catalog
// product id: 1 to maxProductIDDigits ASCII digits.
func looksLikeProductID(tok string) bool {
	if len(tok) == 0 || len(tok) > maxProductIDDigits {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isValidPhone reports whether msg is exactly 10 ASCII digits.
func isValidPhone(msg string) bool {
	if len(msg) != 10 {
		return false
	}
	for _, r := range msg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
