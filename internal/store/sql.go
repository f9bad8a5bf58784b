// Package store is the persistence layer: connection pool, schema
// bootstrap, and the HWM/record data access used by the ingest pipeline.
//
// The record table is named data_v2 and the HWM table's primary key is
// (topic, partition); both names are pinned here as the single source of
// truth for the schema so callers never hand-write SQL against it.
package store

const (
	createDataTable = `
CREATE TABLE IF NOT EXISTS data_v2 (
	id BIGSERIAL PRIMARY KEY,
	kafka_topic     VARCHAR(255) NOT NULL,
	kafka_partition SMALLINT     NOT NULL,
	kafka_offset    BIGINT       NOT NULL,
	timestamp       TIMESTAMP(3) WITH TIME ZONE NOT NULL,
	headers         JSONB,
	record_key      BYTEA,
	record_value    BYTEA,
	UNIQUE(kafka_topic, kafka_partition, kafka_offset)
);`

	createHWMTable = `
CREATE TABLE IF NOT EXISTS hwm (
	topic     VARCHAR(255) NOT NULL,
	partition SMALLINT     NOT NULL,
	hwm       BIGINT       NOT NULL,
	PRIMARY KEY (topic, partition)
);`

	insertData = `
INSERT INTO data_v2 (
	kafka_topic, kafka_partition, kafka_offset,
	timestamp, headers, record_key, record_value
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	queryHWM = `SELECT hwm FROM hwm WHERE topic = $1 AND partition = $2`

	insertHWM = `INSERT INTO hwm (topic, partition, hwm) VALUES ($1, $2, $3)`

	// The predicate "hwm < $3" is the serialization point: it is what
	// makes this statement the gate against replay and reorder.
	updateHWMIfAbove = `UPDATE hwm SET hwm = $3 WHERE topic = $1 AND partition = $2 AND hwm < $3`
)
