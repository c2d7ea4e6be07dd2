package form

import "fmt"

// Pill states for the step indicator.
const (
	PillDone   = "done"
	PillActive = "active"
	PillTodo   = "todo"
)

// View is the presentation projection of a session, shaped for the client
// rendering the form chrome.
type View struct {
	SessionID   string   `json:"session_id"`
	StepIndex   int      `json:"step_index"`
	StepTitle   string   `json:"step_title"`
	Counter     string   `json:"counter"`
	Percent     int      `json:"percent"`
	Pills       []string `json:"pills"`
	CanGoBack   bool     `json:"can_go_back"`
	ButtonLabel string   `json:"button_label"`
	Submitted   bool     `json:"submitted"`
}

// Snapshot builds the view for the session's current position.
func Snapshot(s *Session) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.steps)
	pills := make([]string, total)
	for i := range pills {
		switch {
		case i < s.current:
			pills[i] = PillDone
		case i == s.current:
			pills[i] = PillActive
		default:
			pills[i] = PillTodo
		}
	}

	label := "Berikutnya →"
	if s.current == total-1 {
		label = "Kirim Pendaftaran"
	}

	return View{
		SessionID:   s.id,
		StepIndex:   s.current,
		StepTitle:   s.steps[s.current].Title,
		Counter:     fmt.Sprintf("%d / %d", s.current+1, total),
		Percent:     progressPercent(s.current, total),
		Pills:       pills,
		CanGoBack:   s.current > 0,
		Submitted:   s.submitted,
		ButtonLabel: label,
	}
}
