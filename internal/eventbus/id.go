package eventbus

import "github.com/google/uuid"

func newSubscriberID() string {
	return uuid.NewString()
}
