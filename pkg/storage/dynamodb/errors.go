package dynamodb

import (
	"errors"
	"net"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// transientCodes are the DynamoDB error codes worth retrying.
var transientCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"LimitExceededException":                 true,
	"TransactionConflictException":           true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"TransientClientError":                   true,
}

// IsTransient reports whether err is a throttling, capacity or transient
// client error. Anything else is returned to the caller without retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return transientCodes[apiErr.ErrorCode()]
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

func isConditionalCheckFailed(err error) bool {
	var condCheckFailed *types.ConditionalCheckFailedException
	return errors.As(err, &condCheckFailed)
}
