package agent

import "errors"

var ErrEmptyMeal = errors.New("meal has no items to review")
