package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"brokerage/internal/metrics"
	"brokerage/internal/models"
)

// Ledger - авторитетное in-memory хранилище пользователей, открытых позиций,
// закрытой истории и последних котировок
//
// Заменяет глобальные изменяемые структуры явным типом с определённым API
// мутаций, который создаётся один раз на процесс и передаётся компонентам
// через конструкторы.
//
// Вся мутация сериализуется одним мьютексом: ручное закрытие и
// автоматическое (TP/SL/ликвидация) не могут гонять друг друга на одной
// позиции. Для любой позиции ровно один вызов Close выполняет переход
// open -> closed; остальные видят её отсутствие и возвращают no-op.
//
// Позиции неизменяемы после создания (мутация только через закрытие),
// поэтому возвращаемые указатели безопасны для чтения без блокировки.
type Ledger struct {
	mu sync.Mutex

	users  map[string]*models.User
	closed map[string][]*models.ClosedPosition

	// userID -> positionID -> position
	positions map[string]map[string]*models.Position

	// Индекс asset -> positionID -> position: проверка рисков по котировке
	// не сканирует позиции чужих активов
	byAsset map[string]map[string]*models.Position

	// Последняя котировка по базовому активу (latest-value-wins)
	quotes map[string]models.Quote

	// Допустимые значения плеча
	leverages map[int64]struct{}

	// Источник времени (подменяется в тестах)
	now func() time.Time
}

// OpenRequest - параметры открытия позиции
//
// Цены TP/SL в PRICE_SCALE, маржа в центах. Нулевой TP/SL означает
// отсутствие уровня.
type OpenRequest struct {
	Asset       string
	Side        models.Side
	MarginCents int64
	Leverage    int64
	TakeProfit  int64
	StopLoss    int64
}

// New создает пустой ledger с заданным набором допустимых плеч
func New(leverages []int64) *Ledger {
	levSet := make(map[int64]struct{}, len(leverages))
	for _, l := range leverages {
		levSet[l] = struct{}{}
	}

	return &Ledger{
		users:     make(map[string]*models.User),
		closed:    make(map[string][]*models.ClosedPosition),
		positions: make(map[string]map[string]*models.Position),
		byAsset:   make(map[string]map[string]*models.Position),
		quotes:    make(map[string]models.Quote),
		leverages: levSet,
		now:       time.Now,
	}
}

// CreateUser регистрирует пользователя с начальным балансом в центах
func (l *Ledger) CreateUser(id string, balanceCents int64) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.users[id]; ok {
		return nil, ErrUserExists
	}

	user := &models.User{ID: id, BalanceCents: balanceCents}
	l.users[id] = user
	return user, nil
}

// Balance возвращает текущий баланс пользователя в центах
func (l *Ledger) Balance(userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return user.BalanceCents, nil
}

// SetQuote обновляет последнюю котировку актива
func (l *Ledger) SetQuote(q models.Quote) {
	l.mu.Lock()
	l.quotes[q.Symbol] = q
	l.mu.Unlock()
}

// LastQuote возвращает последнюю котировку актива
func (l *Ledger) LastQuote(asset string) (models.Quote, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quotes[asset]
	return q, ok
}

// Open открывает позицию: валидирует запрос, атомарно списывает маржу,
// вычисляет цену ликвидации и сохраняет позицию.
//
// Long открывается по ask, short по bid текущей котировки.
// Ошибки: ErrUserNotFound, ErrInvalidAsset, ErrInvalidMargin,
// ErrInvalidLeverage, ErrInsufficientFunds, ErrInvalidSide.
func (l *Ledger) Open(userID string, req OpenRequest) (*models.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	if !req.Side.Valid() {
		return nil, ErrInvalidSide
	}

	quote, ok := l.quotes[req.Asset]
	if !ok {
		return nil, ErrInvalidAsset
	}

	if req.MarginCents <= 0 {
		return nil, ErrInvalidMargin
	}

	if _, ok := l.leverages[req.Leverage]; !ok {
		return nil, ErrInvalidLeverage
	}

	if user.BalanceCents < req.MarginCents {
		return nil, ErrInsufficientFunds
	}

	openPrice := quote.AskPrice
	if req.Side == models.SideShort {
		openPrice = quote.BidPrice
	}

	user.BalanceCents -= req.MarginCents

	pos := &models.Position{
		ID:               newPositionID(),
		UserID:           userID,
		Side:             req.Side,
		MarginCents:      req.MarginCents,
		Leverage:         req.Leverage,
		Asset:            req.Asset,
		OpenPrice:        openPrice,
		CreatedAt:        l.now(),
		TakeProfit:       req.TakeProfit,
		StopLoss:         req.StopLoss,
		LiquidationPrice: LiquidationPrice(req.Side, openPrice, req.Leverage),
	}

	if l.positions[userID] == nil {
		l.positions[userID] = make(map[string]*models.Position)
	}
	l.positions[userID][pos.ID] = pos

	if l.byAsset[pos.Asset] == nil {
		l.byAsset[pos.Asset] = make(map[string]*models.Position)
	}
	l.byAsset[pos.Asset][pos.ID] = pos

	metrics.PositionsOpened.WithLabelValues(pos.Asset).Inc()

	return pos, nil
}

// Get возвращает открытую позицию пользователя
func (l *Ledger) Get(userID, positionID string) (*models.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[userID][positionID]
	return pos, ok
}

// OpenByAsset возвращает снимок открытых позиций по активу
func (l *Ledger) OpenByAsset(asset string) []*models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := l.byAsset[asset]
	if len(byID) == 0 {
		return nil
	}

	out := make([]*models.Position, 0, len(byID))
	for _, pos := range byID {
		out = append(out, pos)
	}
	return out
}

// Close идемпотентно закрывает позицию: считает PnL по текущей котировке,
// возвращает пользователю маржу + PnL и переносит позицию в закрытую историю.
//
// Отсутствующая позиция - не ошибка: возвращается (nil, nil), поэтому
// повторные закрытия и гонка ручного закрытия с автоматическим безопасны.
// Long закрывается по bid, short по ask.
func (l *Ledger) Close(userID, positionID string, reason models.CloseReason) (*models.ClosedPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[userID][positionID]
	if !ok {
		// Позиция уже закрыта или не существовала - no-op
		return nil, nil
	}

	user, ok := l.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	quote, ok := l.quotes[pos.Asset]
	if !ok {
		// Позиция не могла открыться без котировки; сюда попадаем только
		// при некорректно собранном ledger
		return nil, ErrInvalidAsset
	}

	closePrice := quote.BidPrice
	if pos.Side == models.SideShort {
		closePrice = quote.AskPrice
	}

	pnl := CalculatePnlCents(pos.Side, pos.OpenPrice, closePrice, pos.MarginCents, pos.Leverage)
	user.BalanceCents += pos.MarginCents + pnl

	closed := &models.ClosedPosition{
		Position:    *pos,
		ClosePrice:  closePrice,
		PnlCents:    pnl,
		ClosedAt:    l.now(),
		CloseReason: reason,
	}

	delete(l.positions[userID], positionID)
	delete(l.byAsset[pos.Asset], positionID)
	l.closed[userID] = append(l.closed[userID], closed)

	metrics.RecordClose(pos.Asset, string(reason), pnl)
	log.Printf("[ledger] position %s user %s closed (%s), pnl %d cents", positionID, userID, reason, pnl)

	return closed, nil
}

// Closed возвращает закрытую историю пользователя
func (l *Ledger) Closed(userID string) []*models.ClosedPosition {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.closed[userID]
	out := make([]*models.ClosedPosition, len(history))
	copy(out, history)
	return out
}

// newPositionID генерирует случайный 16-символьный hex идентификатор
func newPositionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
