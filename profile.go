package timingattack

// Profile selects measurement defaults for the channel the oracle is reached
// through. The inner count amplifies the per-character signal above timer
// resolution; slow channels need far fewer repetitions per trial.
type Profile int

const (
	// InProcess: repeats = 10, inner count = 1000.
	// The oracle is a function call in the same process.
	InProcess Profile = iota

	// LocalNetwork: repeats = 10, inner count = 20.
	// Loopback or LAN HTTP round trips.
	LocalNetwork

	// RemoteNetwork: repeats = 10, inner count = 5.
	// Wide-area round trips; expect a very weak signal.
	RemoteNetwork
)

// String returns the string representation of the profile.
func (p Profile) String() string {
	switch p {
	case InProcess:
		return "InProcess"
	case LocalNetwork:
		return "LocalNetwork"
	case RemoteNetwork:
		return "RemoteNetwork"
	default:
		return "Custom"
	}
}

// Repeats returns the number of independent timing trials per measurement.
func (p Profile) Repeats() int {
	return 10
}

// InnerCount returns the number of back-to-back executions per trial.
func (p Profile) InnerCount() int {
	switch p {
	case InProcess:
		return 1000
	case LocalNetwork:
		return 20
	case RemoteNetwork:
		return 5
	default:
		return 1000
	}
}

// ParseProfile maps a configuration name to a Profile.
// Unknown names report false.
func ParseProfile(name string) (Profile, bool) {
	switch name {
	case "in-process", "inprocess", "InProcess", "":
		return InProcess, true
	case "local-network", "local", "LocalNetwork":
		return LocalNetwork, true
	case "remote-network", "remote", "RemoteNetwork":
		return RemoteNetwork, true
	default:
		return InProcess, false
	}
}
