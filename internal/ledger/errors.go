package ledger

import "errors"

// Ошибки валидации при открытии позиции.
// Все они локальные и возвращаются вызывающему, процесс не падает.
var (
	// ErrInvalidAsset - по активу нет живой котировки
	ErrInvalidAsset = errors.New("no quote available for asset")

	// ErrInvalidMargin - маржа не положительная
	ErrInvalidMargin = errors.New("margin must be positive")

	// ErrInsufficientFunds - маржа превышает доступный баланс
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidLeverage - плечо вне допустимого набора
	ErrInvalidLeverage = errors.New("unsupported leverage")

	// ErrInvalidSide - неизвестное направление позиции
	ErrInvalidSide = errors.New("invalid position side")

	// ErrUserNotFound - пользователь не зарегистрирован в ledger
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists - пользователь уже существует
	ErrUserExists = errors.New("user already exists")
)
