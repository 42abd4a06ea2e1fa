package main

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestBackupKey(t *testing.T) {
	at := time.Date(2025, 3, 1, 4, 5, 6, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, "warehouse/dw-2025-03-01T07-05-06Z.sql.gz", backupKey("dw", at))
}

func TestDumpArgs_OnlyWarehouseSchema(t *testing.T) {
	args := dumpArgs(BackupConfig{DBHost: "db", DBPort: 5433, DBUser: "etl", DBName: "lattes", WarehouseSchema: "dw"})
	assert.Equal(t, []string{"-h", "db", "-p", "5433", "-U", "etl", "-d", "lattes", "-n", "dw", "-w"}, args)
}

func TestExpired_KeepsNewest(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	obj := func(key string, days int) types.Object {
		return types.Object{Key: aws.String(key), LastModified: aws.Time(base.AddDate(0, 0, days))}
	}
	objects := []types.Object{obj("b", 2), obj("a", 1), obj("d", 4), obj("c", 3)}

	old := expired(objects, 2)
	var keys []string
	for _, o := range old {
		keys = append(keys, aws.ToString(o.Key))
	}
	assert.Equal(t, []string{"b", "a"}, keys)
	assert.Nil(t, expired(objects, 4))
}
