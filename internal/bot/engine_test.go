package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"freres-bot/internal/models"
	"freres-bot/internal/service"
	"freres-bot/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products map[string]models.Product
}

func (f *fakeCatalog) ListProducts(ctx context.Context) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(f.products))
	for id, p := range f.products {
		out[id] = p
	}
	return out, nil
}

type fakeProfiles struct {
	profiles map[string]*models.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*models.Profile)}
}

func (f *fakeProfiles) GetProfile(ctx context.Context, phone string) (*models.Profile, error) {
	p, ok := f.profiles[phone]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, phone)
	}
	return p, nil
}

func (f *fakeProfiles) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	copied := *profile
	f.profiles[profile.Phone] = &copied
	return nil
}

type fakeOrderStore struct {
	orders map[string]*models.Order
	byKey  map[string]*models.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: make(map[string]*models.Order),
		byKey:  make(map[string]*models.Order),
	}
}

func (f *fakeOrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	copied := *order
	copied.Items = append([]models.CartItem(nil), order.Items...)
	f.orders[order.ID] = &copied
	if order.IdempotencyKey != "" {
		f.byKey[order.IdempotencyKey] = &copied
	}
	return nil
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return f.byKey[key], nil
}

func (f *fakeOrderStore) UpdateOrderDelivery(ctx context.Context, orderID, method, address string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	o.DeliveryMethod = method
	o.DeliveryAddress = address
	return nil
}

func testProducts() map[string]models.Product {
	return map[string]models.Product{
		"101": {ID: "101", Name: "Gorra", Price: "150", Category: "Accesorios"},
		"102": {ID: "102", Name: "Playera", Price: "250", Category: "Ropa", ImageURL: "https://img.example/playera.jpg"},
		"103": {ID: "103", Name: "Pantalon", Price: "350.50", Category: "Ropa"},
	}
}

type testBot struct {
	engine   *Engine
	sessions *session.MemoryStore
	profiles *fakeProfiles
	orders   *fakeOrderStore
}

func newTestBot(products map[string]models.Product) *testBot {
	catalog := &fakeCatalog{products: products}
	profiles := newFakeProfiles()
	orders := newFakeOrderStore()
	orderService := service.NewOrderService(catalog, orders, nil)
	sessions := session.NewMemoryStore()

	return &testBot{
		engine:   NewEngine(sessions, catalog, profiles, orderService),
		sessions: sessions,
		profiles: profiles,
		orders:   orders,
	}
}

func (tb *testBot) send(text string) []models.Reply {
	return tb.engine.HandleMessage(context.Background(), "user-1", text)
}

func (tb *testBot) sessionState(t *testing.T) *models.Session {
	t.Helper()
	s, err := tb.sessions.Get(context.Background(), "user-1")
	require.NoError(t, err)
	return s
}

func (tb *testBot) seed(t *testing.T, seeded models.Session) {
	t.Helper()
	seeded.UserID = "user-1"
	err := tb.sessions.Update(context.Background(), "user-1", func(s *models.Session) error {
		*s = seeded
		return nil
	})
	require.NoError(t, err)
}

// browsingSession returns a session paging the Ropa category (102, 103).
func browsingSession(products map[string]models.Product) models.Session {
	return models.Session{
		State:             models.StateBrowsingProduct,
		Name:              "Ana Gomez",
		Phone:             "5551234567",
		Address:           "Calle Falsa 123",
		PendingCategories: []string{"Accesorios", "Ropa"},
		CurrentCategory:   "Ropa",
		CategoryProducts:  []models.Product{products["102"], products["103"]},
	}
}

func replyText(t *testing.T, replies []models.Reply) string {
	t.Helper()
	require.NotEmpty(t, replies)
	var parts []string
	for _, r := range replies {
		if r.Text != "" {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestGreetingAndStaticIntents(t *testing.T) {
	tb := newTestBot(testProducts())

	assert.Contains(t, replyText(t, tb.send("Hola!")), "Frere's Collection")
	assert.Contains(t, replyText(t, tb.send("contacto")), "WhatsApp")
	assert.Contains(t, replyText(t, tb.send("¿horario?")), "Lunes a sábado")
	assert.Equal(t, models.StateIdle, tb.sessionState(t).State)
}

func TestFallbackMenu(t *testing.T) {
	tb := newTestBot(testProducts())

	out := replyText(t, tb.send("quiero algo raro"))
	assert.Contains(t, out, "No entendí")
	assert.Equal(t, models.StateIdle, tb.sessionState(t).State)
}

func TestRegistrationFlow(t *testing.T) {
	tb := newTestBot(testProducts())

	assert.Contains(t, replyText(t, tb.send("registrar")), "nombre completo")
	assert.Equal(t, models.StateRegistrationName, tb.sessionState(t).State)

	assert.Contains(t, replyText(t, tb.send("Ana Gomez")), "10 dígitos")
	assert.Equal(t, models.StateRegistrationPhone, tb.sessionState(t).State)

	assert.Contains(t, replyText(t, tb.send("5551234567")), "dirección")
	assert.Equal(t, models.StateRegistrationAddress, tb.sessionState(t).State)

	out := replyText(t, tb.send("Calle Falsa 123"))
	assert.Contains(t, out, "Registro completado, Ana Gomez")
	assert.Contains(t, out, "Categorías disponibles")
	assert.Contains(t, out, "Accesorios")

	s := tb.sessionState(t)
	assert.Equal(t, models.StateLoggedIn, s.State)
	assert.NotEmpty(t, s.PendingCategories)

	profile, err := tb.profiles.GetProfile(context.Background(), "5551234567")
	require.NoError(t, err)
	assert.Equal(t, "Ana Gomez", profile.Name)
	assert.Equal(t, "5551234567", profile.Phone)
	assert.Equal(t, "Calle Falsa 123", profile.Address)
}

func TestRegistrationInvalidPhone(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.send("registrar")
	tb.send("Ana Gomez")

	out := replyText(t, tb.send("555123"))
	assert.Contains(t, out, "Número inválido")
	assert.Equal(t, models.StateRegistrationPhone, tb.sessionState(t).State)

	out = replyText(t, tb.send("555-123-4567"))
	assert.Contains(t, out, "dirección")
	assert.Equal(t, "5551234567", tb.sessionState(t).Phone)
}

func TestLoginKnownPhone(t *testing.T) {
	tb := newTestBot(testProducts())
	require.NoError(t, tb.profiles.UpsertProfile(context.Background(), &models.Profile{
		Phone: "5551234567", Name: "Ana Gomez", Address: "Calle Falsa 123",
	}))

	assert.Contains(t, replyText(t, tb.send("iniciar sesion")), "número registrado")

	out := replyText(t, tb.send("5551234567"))
	assert.Contains(t, out, "Bienvenido de nuevo, Ana Gomez")
	assert.Contains(t, out, "Categorías disponibles")

	s := tb.sessionState(t)
	assert.Equal(t, models.StateLoggedIn, s.State)
	assert.Equal(t, "Calle Falsa 123", s.Address)
}

func TestLoginUnknownPhone(t *testing.T) {
	tb := newTestBot(testProducts())

	tb.send("entrar")
	out := replyText(t, tb.send("5550000000"))
	assert.Contains(t, out, "no registrado")
	assert.Equal(t, models.StateIdle, tb.sessionState(t).State)
}

func TestCatalogFromLoggedIn(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.seed(t, models.Session{State: models.StateLoggedIn, Name: "Ana", Phone: "5551234567"})

	out := replyText(t, tb.send("catalogo"))
	assert.Contains(t, out, "Categorías disponibles")
	assert.Equal(t, models.StateChoosingCategory, tb.sessionState(t).State)
	assert.Equal(t, []string{"Accesorios", "Ropa"}, tb.sessionState(t).PendingCategories)
}

func TestCategorySelectionByIndexAndName(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.seed(t, models.Session{
		State:             models.StateChoosingCategory,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Accesorios", "Ropa"},
	})

	out := replyText(t, tb.send("2"))
	assert.Contains(t, out, "Playera")
	s := tb.sessionState(t)
	assert.Equal(t, models.StateBrowsingProduct, s.State)
	assert.Equal(t, "Ropa", s.CurrentCategory)
	assert.Equal(t, 0, s.ProductCursor)

	// Name selection, accent and case insensitive.
	tb.seed(t, models.Session{
		State:             models.StateChoosingCategory,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Accesorios", "Ropa"},
	})
	out = replyText(t, tb.send("quiero ver ACCESORIOS"))
	assert.Contains(t, out, "Gorra")
	assert.Equal(t, "Accesorios", tb.sessionState(t).CurrentCategory)
}

func TestCategorySelectionInvalid(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.seed(t, models.Session{
		State:             models.StateChoosingCategory,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Accesorios", "Ropa"},
	})

	out := replyText(t, tb.send("zapatos"))
	assert.Contains(t, out, "Categoría no válida")
	assert.Equal(t, models.StateChoosingCategory, tb.sessionState(t).State)
}

func TestProductCardIncludesImage(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.seed(t, models.Session{
		State:             models.StateChoosingCategory,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Ropa"},
	})

	replies := tb.send("ropa")
	require.Len(t, replies, 2)
	assert.Equal(t, "https://img.example/playera.jpg", replies[0].ImageURL)
	assert.Contains(t, replies[1].Text, "Playera")
	assert.Contains(t, replies[1].Text, "ID: 102")
}

func TestBrowsingAddForms(t *testing.T) {
	products := testProducts()

	cases := []struct {
		name    string
		message string
		wantID  string
	}{
		{"bare si accepts current product", "si", "102"},
		{"si with id", "si 103", "103"},
		{"pedido with id", "pedido 103", "103"},
		{"bare id", "103", "103"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tb := newTestBot(products)
			tb.seed(t, browsingSession(products))

			out := replyText(t, tb.send(tc.message))
			assert.Contains(t, out, "agregado al pedido")

			s := tb.sessionState(t)
			require.Len(t, s.Cart, 1)
			assert.Equal(t, tc.wantID, s.Cart[0].ProductID)
			assert.Equal(t, 1, s.ProductCursor)
		})
	}
}

func TestBrowsingSkipAdvancesCursor(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)
	tb.seed(t, browsingSession(products))

	out := replyText(t, tb.send("no"))
	assert.Contains(t, out, "Pantalon")
	assert.Equal(t, 1, tb.sessionState(t).ProductCursor)
	assert.Empty(t, tb.sessionState(t).Cart)
}

func TestBrowsingUnknownAndMalformedInput(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)
	tb.seed(t, browsingSession(products))

	// Product-shaped id that is not in the catalog.
	out := replyText(t, tb.send("9999"))
	assert.Contains(t, out, "no existe")
	assert.Equal(t, 0, tb.sessionState(t).ProductCursor)

	// Too long to be a product id; never treated as one.
	out = replyText(t, tb.send("123456"))
	assert.Contains(t, out, "No entendí")

	out = replyText(t, tb.send("tal vez luego"))
	assert.Contains(t, out, "No entendí")
	assert.Empty(t, tb.sessionState(t).Cart)
}

func TestUniversalFinalizeFromBrowsing(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)
	seeded := browsingSession(products)
	seeded.Cart = []models.CartItem{{ProductID: "101", Name: "Gorra", Price: "150", Category: "Accesorios"}}
	seeded.CartToken = "cart-token-1"
	tb.seed(t, seeded)

	out := replyText(t, tb.send("ya"))
	assert.Contains(t, out, "Pedido registrado")
	assert.Contains(t, out, "Domicilio")

	s := tb.sessionState(t)
	assert.Equal(t, models.StateChoosingDelivery, s.State)
	assert.Empty(t, s.Cart)
	assert.NotEmpty(t, s.LastOrderID)

	order, err := tb.orders.GetOrderByID(context.Background(), s.LastOrderID)
	require.NoError(t, err)
	assert.InDelta(t, 150, order.Total, 0.001)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestFinalizeWithEmptyCart(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.seed(t, models.Session{State: models.StateLoggedIn, Name: "Ana", Phone: "5551234567"})

	out := replyText(t, tb.send("finalizar pedido"))
	assert.Contains(t, out, "carrito está vacío")
	assert.Equal(t, models.StateLoggedIn, tb.sessionState(t).State)
	assert.Empty(t, tb.orders.orders)
}

func TestFinalizeIgnoredDuringRegistration(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.send("registrar")
	tb.send("Ana Gomez")

	// "finalizar" during the phone prompt is flow-local input, not the
	// override; it fails phone validation and the state stays put.
	out := replyText(t, tb.send("finalizar"))
	assert.Contains(t, out, "Número inválido")
	assert.Equal(t, models.StateRegistrationPhone, tb.sessionState(t).State)
	assert.Empty(t, tb.orders.orders)
}

func TestCategoryExhaustionOffersRemaining(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)

	// Accesorios has exactly one product.
	tb.seed(t, models.Session{
		State:             models.StateBrowsingProduct,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Accesorios", "Ropa"},
		CurrentCategory:   "Accesorios",
		CategoryProducts:  []models.Product{products["101"]},
	})

	out := replyText(t, tb.send("no"))
	assert.Contains(t, out, "Ya no hay más productos")
	assert.Contains(t, out, "Ropa")

	s := tb.sessionState(t)
	assert.Equal(t, models.StateChoosingCategory, s.State)
	assert.Equal(t, []string{"Ropa"}, s.PendingCategories)
}

func TestCategoryExhaustionEmptyCartReturnsToLoggedIn(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)

	tb.seed(t, models.Session{
		State:             models.StateBrowsingProduct,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Accesorios"},
		CurrentCategory:   "Accesorios",
		CategoryProducts:  []models.Product{products["101"]},
	})

	out := replyText(t, tb.send("no"))
	assert.Contains(t, out, "No agregaste productos")
	assert.Equal(t, models.StateLoggedIn, tb.sessionState(t).State)
}

func TestCategoryExhaustionWithCartFinalizes(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)

	tb.seed(t, models.Session{
		State:             models.StateBrowsingProduct,
		Name:              "Ana",
		Phone:             "5551234567",
		PendingCategories: []string{"Accesorios"},
		CurrentCategory:   "Accesorios",
		CategoryProducts:  []models.Product{products["101"]},
		Cart:              []models.CartItem{{ProductID: "102", Name: "Playera", Price: "250", Category: "Ropa"}},
		CartToken:         "cart-token-2",
	})

	out := replyText(t, tb.send("no"))
	assert.Contains(t, out, "Pedido registrado")
	assert.Equal(t, models.StateChoosingDelivery, tb.sessionState(t).State)
	require.Len(t, tb.orders.orders, 1)
}

func TestDeliveryMethodSelection(t *testing.T) {
	products := testProducts()

	finalize := func(tb *testBot) string {
		seeded := browsingSession(products)
		seeded.Cart = []models.CartItem{{ProductID: "101", Name: "Gorra", Price: "150", Category: "Accesorios"}}
		seeded.CartToken = "cart-token-3"
		tb.seed(t, seeded)
		tb.send("finalizar pedido")
		return tb.sessionState(t).LastOrderID
	}

	t.Run("home delivery", func(t *testing.T) {
		tb := newTestBot(products)
		orderID := finalize(tb)

		out := replyText(t, tb.send("domicilio"))
		assert.Contains(t, out, "Enviado a domicilio")
		assert.Equal(t, models.StateLoggedIn, tb.sessionState(t).State)

		order, err := tb.orders.GetOrderByID(context.Background(), orderID)
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryHome, order.DeliveryMethod)
		assert.Equal(t, "Calle Falsa 123", order.DeliveryAddress)
	})

	t.Run("pickup", func(t *testing.T) {
		tb := newTestBot(products)
		orderID := finalize(tb)

		out := replyText(t, tb.send("recoger en tienda"))
		assert.Contains(t, out, "recoger en tienda")
		order, err := tb.orders.GetOrderByID(context.Background(), orderID)
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryPickup, order.DeliveryMethod)
	})

	t.Run("invalid answer re-prompts", func(t *testing.T) {
		tb := newTestBot(products)
		finalize(tb)

		out := replyText(t, tb.send("en bicicleta"))
		assert.Contains(t, out, "domicilio")
		assert.Equal(t, models.StateChoosingDelivery, tb.sessionState(t).State)
	})
}

func TestOrderLookup(t *testing.T) {
	tb := newTestBot(testProducts())
	require.NoError(t, tb.orders.CreateOrder(context.Background(), &models.Order{
		ID:     "PED-a1b2c3d4",
		Phone:  "5551234567",
		Status: models.OrderStatusPending,
		Total:  150,
		Items:  []models.CartItem{{ProductID: "101", Name: "Gorra", Price: "150"}},
	}))

	out := replyText(t, tb.send("consultar PED-a1b2c3d4"))
	assert.Contains(t, out, "PED-a1b2c3d4")
	assert.Contains(t, out, "Gorra")
	assert.Contains(t, out, "150")
}

func TestOrderLookupUnknownIDLeavesStateAlone(t *testing.T) {
	tb := newTestBot(testProducts())
	tb.seed(t, models.Session{State: models.StateLoggedIn, Name: "Ana", Phone: "5551234567"})

	out := replyText(t, tb.send("consultar XYZ123"))
	assert.Contains(t, out, "Pedido no encontrado")
	assert.Equal(t, models.StateLoggedIn, tb.sessionState(t).State)
	assert.Empty(t, tb.sessionState(t).Cart)
}

func TestOrderLookupUsage(t *testing.T) {
	tb := newTestBot(testProducts())

	out := replyText(t, tb.send("consultar"))
	assert.Contains(t, out, "consultar ID_DEL_PEDIDO")
}

func TestCursorMonotonicWithinEpisode(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)
	tb.seed(t, browsingSession(products))

	cursors := []int{tb.sessionState(t).ProductCursor}
	tb.send("no")
	cursors = append(cursors, tb.sessionState(t).ProductCursor)
	tb.send("si")
	cursors = append(cursors, tb.sessionState(t).ProductCursor)

	for i := 1; i < len(cursors); i++ {
		assert.GreaterOrEqual(t, cursors[i], cursors[i-1])
	}
}

func TestGreetingDoesNotDisturbBrowsing(t *testing.T) {
	products := testProducts()
	tb := newTestBot(products)
	tb.seed(t, browsingSession(products))

	out := replyText(t, tb.send("hola"))
	assert.Contains(t, out, "Frere's Collection")

	s := tb.sessionState(t)
	assert.Equal(t, models.StateBrowsingProduct, s.State)
	assert.Equal(t, 0, s.ProductCursor)
}
