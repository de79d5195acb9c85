package model

// Player is a row of the players directory used for display names.
type Player struct {
	UserID      string
	DisplayName string
	IsActive    bool
}
