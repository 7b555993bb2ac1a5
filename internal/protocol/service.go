package protocol

import "fmt"

// Service identifies a broker operation. The zero value is not a valid
// service.
type Service uint8

const (
	ServiceLogin Service = iota + 1
	ServiceUsers
	ServiceChannels
	ServiceChannel
	ServicePublish
	ServiceMessage
	ServiceSubscribe
	ServiceUnsubscribe
)

var serviceNames = [...]string{
	ServiceLogin:       "login",
	ServiceUsers:       "users",
	ServiceChannels:    "channels",
	ServiceChannel:     "channel",
	ServicePublish:     "publish",
	ServiceMessage:     "message",
	ServiceSubscribe:   "subscribe",
	ServiceUnsubscribe: "unsubscribe",
}

// Services lists every request service in wire order.
func Services() []Service {
	return []Service{
		ServiceLogin, ServiceUsers, ServiceChannels, ServiceChannel,
		ServicePublish, ServiceMessage, ServiceSubscribe, ServiceUnsubscribe,
	}
}

// String returns the wire name of the service.
func (s Service) String() string {
	if s.Valid() {
		return serviceNames[s]
	}
	return fmt.Sprintf("service(%d)", uint8(s))
}

// Valid reports whether s is one of the enumerated services.
func (s Service) Valid() bool {
	return s >= ServiceLogin && s <= ServiceUnsubscribe
}

// ParseService maps a wire name to its Service.
func ParseService(name string) (Service, error) {
	for _, s := range Services() {
		if serviceNames[s] == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown service %q", name)
}
