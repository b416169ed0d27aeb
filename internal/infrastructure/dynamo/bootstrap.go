package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-realtime/internal/config"
)

// Bootstrap creates the users, messages and notifications tables with their GSIs.
// Tables that already exist are left untouched.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Users),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr(fieldUserID, types.ScalarAttributeTypeN),
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldUserID), KeyType: types.KeyTypeHash},
		},
	})

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Messages),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr(fieldMessageID, types.ScalarAttributeTypeS),
			attr(fieldConversationKey, types.ScalarAttributeTypeS),
			attr(fieldRecipientStatus, types.ScalarAttributeTypeS),
			attr(fieldSenderID, types.ScalarAttributeTypeN),
			attr(fieldRecipientID, types.ScalarAttributeTypeN),
			attr(fieldSentAtMs, types.ScalarAttributeTypeN),
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldMessageID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexConversation, fieldConversationKey, fieldSentAtMs),
			gsi(indexMessageRecipientStat, fieldRecipientStatus, fieldSentAtMs),
			gsi(indexMessageSender, fieldSenderID, fieldSentAtMs),
			gsi(indexMessageRecipient, fieldRecipientID, fieldSentAtMs),
		},
	})

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Notifications),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr(fieldNotificationID, types.ScalarAttributeTypeS),
			attr(fieldRecipientID, types.ScalarAttributeTypeN),
			attr(fieldRecipientStatus, types.ScalarAttributeTypeS),
			attr(fieldCreatedAtMs, types.ScalarAttributeTypeN),
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldNotificationID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexNotificationOwner, fieldRecipientID, fieldCreatedAtMs),
			gsi(indexNotificationStatus, fieldRecipientStatus, fieldCreatedAtMs),
		},
	})
}

func attr(name string, typ types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: typ}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
		return
	}
	slog.Info("created table", "table", *input.TableName)
}
