package param

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
	FetchAll(context.Context, string) ([]string, error)
}

func splitValue(p types.Parameter) []string {
	value := aws.ToString(p.Value)
	if p.Type == types.ParameterTypeStringList {
		return strings.Split(value, ",")
	}
	return []string{value}
}
