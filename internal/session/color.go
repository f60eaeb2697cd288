package session

import (
	"fmt"
	"math/rand/v2"
)

// RandomColor returns a saturated HSL color with a random hue.
func RandomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", rand.IntN(360))
}
