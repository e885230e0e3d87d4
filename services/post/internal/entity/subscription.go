package entity

type Subscription struct {
	UserID    string
	Plan      string
	Status    string
	PostCount int
}

func (s *Subscription) Active() bool {
	return s.Status == "active"
}
