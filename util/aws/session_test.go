package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/forseti-judge/autoscaler/config"
)

func TestNewAWSSession(t *testing.T) {
	sess, err := NewAWSSession(config.AWS{
		Region:     "eu-west-1",
		Endpoint:   "http://localhost:4566",
		Key:        "key",
		Secret:     "secret",
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	c := sess.Config
	if aws.StringValue(c.Region) != "eu-west-1" {
		t.Error("unexpected region", aws.StringValue(c.Region))
	}
	if aws.StringValue(c.Endpoint) != "http://localhost:4566" {
		t.Error("unexpected endpoint", aws.StringValue(c.Endpoint))
	}
	if !aws.BoolValue(c.DisableSSL) {
		t.Error("expected SSL to be disabled for a plain HTTP endpoint")
	}
	if aws.IntValue(c.MaxRetries) != 2 {
		t.Error("unexpected max retries", aws.IntValue(c.MaxRetries))
	}

	creds, err := c.Credentials.Get()
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "key" || creds.SecretAccessKey != "secret" {
		t.Error("unexpected credentials", creds)
	}
}
