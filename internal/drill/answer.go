package drill

import (
	"fmt"
	"time"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/textnorm"
)

// AnswerResult is the feedback for one submitted answer.
type AnswerResult struct {
	ItemID             string `json:"item_id"`
	Correct            bool   `json:"correct"`
	NearMatch          bool   `json:"near_match"`
	Expected           string `json:"expected"`
	MasteredThisAnswer bool   `json:"mastered_this_answer"`
	Remaining          int    `json:"remaining"`
}

// Grade compares a raw answer with the expected translation.
// nearMatch is set when the answer only differs by diacritics or inner spacing; it never makes
// an answer correct.
func Grade(raw, expected string) (correct, nearMatch bool) {
	correct = textnorm.Fold(raw) == textnorm.Fold(expected)
	tolerant := textnorm.Loose(raw) == textnorm.Loose(expected)
	return correct, tolerant && !correct
}

// SubmitAnswer grades raw for the head entry of sess and advances the queue.
// Every precondition is checked before anything is mutated.
func (e *Engine) SubmitAnswer(sess *Session, itemID, raw string, now time.Time) (AnswerResult, error) {
	if sess.State() == StateCompleted {
		return AnswerResult{}, fmt.Errorf("%w: session %s is completed", apperr.ErrPrecondition, sess.ID)
	}
	head, ok := sess.queue.Head()
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: session %s has no items left", apperr.ErrPrecondition, sess.ID)
	}
	item, ok := sess.candidates[itemID]
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: item %s is not part of session %s", apperr.ErrNotFound, itemID, sess.ID)
	}
	if head.Item.ID != itemID {
		return AnswerResult{}, fmt.Errorf("%w: item %s is not the current item", apperr.ErrPrecondition, itemID)
	}
	if textnorm.IsBlank(raw) {
		return AnswerResult{}, fmt.Errorf("%w: answer is empty", apperr.ErrInvalidInput)
	}

	correct, near := Grade(raw, item.Translation)

	item.TotalAttempts++
	if correct {
		item.TotalCorrect++
	} else {
		item.TotalWrong++
	}

	out, err := sess.queue.Transition(correct)
	if err != nil {
		// Unreachable: the head was checked above.
		return AnswerResult{}, err
	}
	if out.Mastered {
		sess.mastered[itemID] = true
	}

	sess.answers = append(sess.answers, AnswerRecord{
		ItemID:    itemID,
		Raw:       raw,
		Expected:  item.Translation,
		Correct:   correct,
		NearMatch: near,
		At:        now,
	})

	return AnswerResult{
		ItemID:             itemID,
		Correct:            correct,
		NearMatch:          near,
		Expected:           item.Translation,
		MasteredThisAnswer: out.Mastered,
		Remaining:          sess.queue.Len(),
	}, nil
}
