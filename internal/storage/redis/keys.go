package redis

import "fmt"

// Key prefix for all master-server data
const keyPrefix = "nsms"

// accountKey returns the Redis key for an Account
func accountKey(id string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}
