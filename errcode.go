package bthost

import "fmt"

// ErrorCode is an HCI status/reason code as delivered by the controller.
type ErrorCode uint8

const (
	Success                            ErrorCode = 0x00
	UnknownHciCommand                  ErrorCode = 0x01
	UnknownConnection                  ErrorCode = 0x02
	PageTimeout                        ErrorCode = 0x04
	AuthenticationFailure              ErrorCode = 0x05
	MemoryCapacityExceeded             ErrorCode = 0x07
	ConnectionTimeout                  ErrorCode = 0x08
	ConnectionLimitExceeded            ErrorCode = 0x09
	ConnectionAlreadyExists            ErrorCode = 0x0b
	CommandDisallowed                  ErrorCode = 0x0c
	ConnectionRejectedLimitedResources ErrorCode = 0x0d
	RemoteUserTerminatedConnection     ErrorCode = 0x13
	RemoteDeviceTerminatedLowResources ErrorCode = 0x14
	RemotePowerOff                     ErrorCode = 0x15
	ConnectionTerminatedByLocalHost    ErrorCode = 0x16
	PairingNotAllowed                  ErrorCode = 0x18
	UnsupportedRemoteFeature           ErrorCode = 0x1a
	ControllerBusy                     ErrorCode = 0x3a
	AdvertisingTimeout                 ErrorCode = 0x3c
	ConnectionFailedEstablishment      ErrorCode = 0x3e
)

func (e ErrorCode) String() string {
	switch e {
	case Success:
		return "SUCCESS"
	case UnknownHciCommand:
		return "UNKNOWN_HCI_COMMAND"
	case UnknownConnection:
		return "UNKNOWN_CONNECTION"
	case PageTimeout:
		return "PAGE_TIMEOUT"
	case AuthenticationFailure:
		return "AUTHENTICATION_FAILURE"
	case MemoryCapacityExceeded:
		return "MEMORY_CAPACITY_EXCEEDED"
	case ConnectionTimeout:
		return "CONNECTION_TIMEOUT"
	case ConnectionLimitExceeded:
		return "CONNECTION_LIMIT_EXCEEDED"
	case ConnectionAlreadyExists:
		return "CONNECTION_ALREADY_EXISTS"
	case CommandDisallowed:
		return "COMMAND_DISALLOWED"
	case ConnectionRejectedLimitedResources:
		return "CONNECTION_REJECTED_LIMITED_RESOURCES"
	case RemoteUserTerminatedConnection:
		return "REMOTE_USER_TERMINATED_CONNECTION"
	case RemoteDeviceTerminatedLowResources:
		return "REMOTE_DEVICE_TERMINATED_CONNECTION_LOW_RESOURCES"
	case RemotePowerOff:
		return "REMOTE_DEVICE_TERMINATED_CONNECTION_POWER_OFF"
	case ConnectionTerminatedByLocalHost:
		return "CONNECTION_TERMINATED_BY_LOCAL_HOST"
	case PairingNotAllowed:
		return "PAIRING_NOT_ALLOWED"
	case UnsupportedRemoteFeature:
		return "UNSUPPORTED_REMOTE_FEATURE"
	case ControllerBusy:
		return "CONTROLLER_BUSY"
	case AdvertisingTimeout:
		return "ADVERTISING_TIMEOUT"
	case ConnectionFailedEstablishment:
		return "CONNECTION_FAILED_ESTABLISHMENT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(e))
	}
}

// Role of the local device on a link.
type Role uint8

const (
	RoleCentral    Role = 0x00
	RolePeripheral Role = 0x01
)

func (r Role) String() string {
	switch r {
	case RoleCentral:
		return "CENTRAL"
	case RolePeripheral:
		return "PERIPHERAL"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(r))
	}
}

// Mode of a classic link.
type Mode uint8

const (
	ModeActive Mode = 0x00
	ModeHold   Mode = 0x01
	ModeSniff  Mode = 0x02
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "ACTIVE"
	case ModeHold:
		return "HOLD"
	case ModeSniff:
		return "SNIFF"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(m))
	}
}

// EncryptionStatus as reported by an encryption change event.
type EncryptionStatus uint8

const (
	EncryptionOff         EncryptionStatus = 0x00
	EncryptionOn          EncryptionStatus = 0x01
	EncryptionBrEdrAesCcm EncryptionStatus = 0x02
)

// ClassOfDevice is the 3-byte classic class of device field.
type ClassOfDevice [3]byte

func (c ClassOfDevice) String() string {
	return fmt.Sprintf("%02x%02x%02x", c[2], c[1], c[0])
}
