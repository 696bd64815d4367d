package orders

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	// StatusExpiredForEdit is never stored; it is how an Open order reads once
	// its edit window has passed.
	StatusExpiredForEdit Status = "EXPIRED_FOR_EDIT"
)

var validNext = map[Status]map[Status]bool{
	StatusOpen:      {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
