// Package aws builds the AWS session shared by the SQS and ECS backends.
package aws

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/forseti-judge/autoscaler/config"
)

// NewAWSSession returns a new session.Session instance. If both the key and
// secret are empty AWS credentials are read from the environment.
func NewAWSSession(conf config.AWS) (*session.Session, error) {
	awsConf := aws.NewConfig()

	if conf.Endpoint != "" {
		// Local emulators such as localstack usually serve plain HTTP.
		if !strings.HasPrefix(conf.Endpoint, "https://") {
			awsConf.WithDisableSSL(true)
		}
		awsConf.WithEndpoint(conf.Endpoint)
	}

	if conf.Region != "" {
		awsConf.WithRegion(conf.Region)
	}

	if conf.MaxRetries > 0 {
		awsConf.WithMaxRetries(conf.MaxRetries)
	}

	if conf.Key != "" && conf.Secret != "" {
		creds := credentials.NewStaticCredentialsFromCreds(credentials.Value{
			AccessKeyID:     conf.Key,
			SecretAccessKey: conf.Secret,
		})
		awsConf.WithCredentials(creds)
	}

	return session.NewSession(awsConf)
}
