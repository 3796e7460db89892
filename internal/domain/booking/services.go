package booking

import (
	"encoding/json"
	"fmt"

	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

// ServiceSet keeps the selected services in insertion order with unique ids.
// The zero value is an empty set.
type ServiceSet struct {
	order []string
	byID  map[string]Service
}

func NewServiceSet(services ...Service) ServiceSet {
	var s ServiceSet
	for _, svc := range services {
		s = s.with(svc)
	}
	return s
}

func (s ServiceSet) Len() int { return len(s.order) }

func (s ServiceSet) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Items returns the services in insertion order.
func (s ServiceSet) Items() []Service {
	out := make([]Service, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s ServiceSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s ServiceSet) TotalDuration() int {
	total := 0
	for _, svc := range s.byID {
		total += svc.DurationMinutes
	}
	return total
}

func (s ServiceSet) TotalPrice() float64 {
	total := 0.0
	for _, id := range s.order {
		total += s.byID[id].Price
	}
	return total
}

// Toggle removes svc when present, otherwise appends it. Adding past max
// fails and returns the receiver untouched.
func (s ServiceSet) Toggle(svc Service, max int) (ServiceSet, error) {
	if s.Has(svc.ID) {
		return s.without(svc.ID), nil
	}
	if s.Len() >= max {
		return s, httperr.Validation("too_many_services", fmt.Sprintf("You can select at most %d services.", max))
	}
	return s.with(svc), nil
}

// with and without always copy so values handed out stay immutable.
func (s ServiceSet) with(svc Service) ServiceSet {
	out := s.clone()
	if _, ok := out.byID[svc.ID]; !ok {
		out.order = append(out.order, svc.ID)
	}
	out.byID[svc.ID] = svc
	return out
}

func (s ServiceSet) without(id string) ServiceSet {
	out := ServiceSet{byID: make(map[string]Service, len(s.byID))}
	for _, cur := range s.order {
		if cur == id {
			continue
		}
		out.order = append(out.order, cur)
		out.byID[cur] = s.byID[cur]
	}
	return out
}

func (s ServiceSet) clone() ServiceSet {
	out := ServiceSet{
		order: make([]string, len(s.order), len(s.order)+1),
		byID:  make(map[string]Service, len(s.byID)+1),
	}
	copy(out.order, s.order)
	for id, svc := range s.byID {
		out.byID[id] = svc
	}
	return out
}

func (s ServiceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

func (s *ServiceSet) UnmarshalJSON(data []byte) error {
	var items []Service
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewServiceSet(items...)
	return nil
}
