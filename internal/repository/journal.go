package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"campus-relay/internal/domain"
)

const (
	skPrefixUpdate = "UPD#"
	ttlDuration    = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Journal.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Journal appends one item per processed update. It never reads, so it
// cannot influence routing.
type Journal struct {
	api       dynamodbAPI
	tableName string
}

// New creates a Journal writing to tableName.
func New(api dynamodbAPI, tableName string) (*Journal, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Journal{api: api, tableName: tableName}, nil
}

// chatPK returns the partition key for a chat.
func chatPK(chatID int64) string {
	return "CHAT#" + strconv.FormatInt(chatID, 10)
}

// updateSK orders entries by time; the correlation id keeps keys unique for
// updates landing in the same instant.
func updateSK(ts time.Time, correlationID string) string {
	return skPrefixUpdate + ts.UTC().Format(time.RFC3339Nano) + "#" + correlationID
}

// Record writes entry. A missing CreatedAt or CorrelationID is filled in.
func (j *Journal) Record(ctx context.Context, entry domain.JournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = newUUID()
	}

	_, err := j.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(j.tableName),
		Item:                entryItem(entry),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Record: %w", err)
	}
	return nil
}

func entryItem(e domain.JournalEntry) map[string]types.AttributeValue {
	failure := string(e.Failure)
	if failure == "" {
		failure = "none"
	}
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: chatPK(e.ChatID)},
		"SK":            &types.AttributeValueMemberS{Value: updateSK(e.CreatedAt, e.CorrelationID)},
		"chatId":        &types.AttributeValueMemberN{Value: strconv.FormatInt(e.ChatID, 10)},
		"correlationId": &types.AttributeValueMemberS{Value: e.CorrelationID},
		"route":         &types.AttributeValueMemberS{Value: string(e.Route)},
		"failure":       &types.AttributeValueMemberS{Value: failure},
		"delivered":     &types.AttributeValueMemberBOOL{Value: e.Delivered},
		"createdAt":     &types.AttributeValueMemberS{Value: e.CreatedAt.UTC().Format(time.RFC3339)},
		"ttl":           &types.AttributeValueMemberN{Value: strconv.FormatInt(e.CreatedAt.Add(ttlDuration).Unix(), 10)},
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
