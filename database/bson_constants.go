package database

// Opérateurs MongoDB (évite les littéraux dupliqués)
const (
	BSONSet   = "$set"
	BSONPush  = "$push"
	BSONGroup = "$group"
	BSONSum   = "$sum"
	BSONSort  = "$sort"
	BSONSize  = "$size"
	BSONAdd   = "$add"
)

// Champs communs
const (
	fieldID        = "_id"
	fieldCreatedAt = "created_at"
	fieldStatus    = "status"
)
