package output

// Options configures a Controller at construction. There is no env/file
// persistence layer; callers pass what they need.
type Options struct {
	// DriverHint is a driver-selection hint held for callers that construct
	// drivers generically. Controller does not read it; the driver is chosen
	// when the caller builds the driver.Driver passed to New (for example
	// paoutput.New's deviceHint).
	DriverHint string
	// MailboxCapacity overrides the default EventMailbox size in bytes.
	// Values below mailbox.MinCapacity are rounded up.
	MailboxCapacity int
	// RingBufferMultiple is the minimum ring buffer capacity as a multiple
	// of the negotiated preferred buffer size. Zero selects the default
	// of 4.
	RingBufferMultiple int
	// HousekeepingIntervalMS overrides the mailbox-drain period. Zero
	// selects the ~5 Hz default (200ms).
	HousekeepingIntervalMS int
}

// DefaultOptions returns the standard defaults.
func DefaultOptions() Options {
	return Options{
		RingBufferMultiple:     4,
		HousekeepingIntervalMS: 200,
	}
}

func (o Options) ringMultiple() int {
	if o.RingBufferMultiple <= 0 {
		return 4
	}
	return o.RingBufferMultiple
}

func (o Options) housekeepingInterval() int {
	if o.HousekeepingIntervalMS <= 0 {
		return 200
	}
	return o.HousekeepingIntervalMS
}
