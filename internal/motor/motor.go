// Package motor carries motor speed intents from the communication
// goroutines to the single consumer that owns the motor driver.
package motor

// Channel indices of the four motor channels.
const (
	Forward = iota
	Turn
	Front
	Back

	NumChannels
)

// Speeds is one signed speed value per motor channel.
type Speeds [NumChannels]int

// Zero is the all-stop speed set.
var Zero = Speeds{}

// Controller is the motor actuation driver boundary. Implementations apply
// the four channel speeds to the hardware. Only the queue consumer goroutine
// calls it.
type Controller interface {
	UpdateSpeeds(s Speeds) error
}
