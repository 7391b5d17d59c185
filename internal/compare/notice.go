package compare

import (
	"errors"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/notify"
)

// AddToast maps the outcome of adding title to the comparison onto the
// notification shown to the user.
func AddToast(title string, max int, err error) notify.Toast {
	var mismatch *CategoryMismatchError
	switch {
	case err == nil:
		return notify.Toast{Level: notify.Success, Message: fmt.Sprintf("%s added to comparison", title)}
	case errors.Is(err, ErrAlreadyPresent):
		return notify.Toast{Level: notify.Info, Message: fmt.Sprintf("%s is already in your comparison", title)}
	case errors.As(err, &mismatch):
		return notify.Toast{
			Level: notify.Error,
			Message: fmt.Sprintf("You can only compare products from the same category (%s). Clear the comparison to compare %s products.",
				orMissing(mismatch.Locked), orMissing(mismatch.Got)),
		}
	case errors.Is(err, ErrFull):
		return notify.Toast{Level: notify.Info, Message: fmt.Sprintf("You can compare up to %d products", max)}
	default:
		return notify.Toast{Level: notify.Error, Message: "Could not update the comparison"}
	}
}
