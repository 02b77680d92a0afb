package db

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestMongoCollection_NilCollection(t *testing.T) {
	coll := &MongoCollection{Collection: nil}
	if err := coll.Save(context.Background(), "k", []byte("v")); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := coll.Load(context.Background(), "k"); err == nil {
		t.Error("expected error when collection is nil")
	}
}

// Integration test (requires running MongoDB)
func TestMongoCollection_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "rentacar_test"
	}
	coll := &MongoCollection{Collection: client.Database(dbName).Collection("client_state")}
	defer coll.DeleteAll(context.Background())

	if _, err := coll.Load(ctx, "missing"); err != ErrStateNotFound {
		t.Errorf("expected ErrStateNotFound, got %v", err)
	}
	if err := coll.Save(ctx, "pickup", []byte("2024-06-10T10:00:00Z")); err != nil {
		t.Fatalf("expected save to succeed, got error: %v", err)
	}
	if err := coll.Save(ctx, "pickup", []byte("2024-06-11T10:00:00Z")); err != nil {
		t.Fatalf("expected upsert to succeed, got error: %v", err)
	}
	got, err := coll.Load(ctx, "pickup")
	if err != nil {
		t.Fatalf("expected load to succeed, got error: %v", err)
	}
	if string(got) != "2024-06-11T10:00:00Z" {
		t.Errorf("expected latest value, got %s", got)
	}
}
