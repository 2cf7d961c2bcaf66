package domain

// Entity is the base identity shared by all persisted records. The ID is
// assigned by the persistence layer on insert and is zero before creation.
type Entity struct {
	ID int64
}
