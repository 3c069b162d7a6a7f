package domain

// RoomID names a transient video call room. Rooms live only in process
// memory and are created lazily on first join.
type RoomID string
