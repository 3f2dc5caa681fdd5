/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Command ndj2influx reads ndjson events (pulr's output) from stdin and
// forwards them as InfluxDB line protocol over HTTP.
package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagBucket   string
	flagUser     string
	flagTimeCol  string
	flagMetric   string
	flagValueCol string
	flagTimeout  float64
	flagVerbose  bool
)

func main() {
	root := &cobra.Command{
		Use:   "ndj2influx <url> <db> <base>",
		Short: "Send ndjson metrics from stdin to InfluxDB",
		Args:  cobra.ExactArgs(3),
		RunE:  run,
	}
	root.Flags().StringVarP(&flagBucket, "bucket", "B", "", "InfluxDB v2 bucket (selects the v2 write API)")
	root.Flags().StringVarP(&flagUser, "user", "U", os.Getenv("INFLUXDB_AUTH"), "username:password or API token")
	root.Flags().StringVarP(&flagTimeCol, "time-col", "T", "time", `time column; "@" uses wall-clock now`)
	root.Flags().StringVarP(&flagMetric, "metric-col", "M", "", "metric-name column (default: parse all columns as K=V)")
	root.Flags().StringVarP(&flagValueCol, "value-col", "V", "value", "value column, used only with --metric-col")
	root.Flags().Float64Var(&flagTimeout, "timeout", 5.0, "HTTP write timeout in seconds")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "print each line-protocol write to stdout")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("ndj2influx: fatal error")
	}
}

func run(_ *cobra.Command, args []string) error {
	url, db, baseArg := args[0], args[1], args[2]

	base := ""
	fixedBase := ""
	if strings.HasPrefix(baseArg, "@") {
		fixedBase = strings.TrimPrefix(baseArg, "@")
	} else {
		base = baseArg
	}

	auth := flagUser
	useV2 := flagBucket != ""
	if auth != "" {
		if useV2 {
			auth = "Token " + auth
		} else {
			auth = "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
		}
	}

	writeURL := fmt.Sprintf("%s/write?db=%s", url, db)
	if useV2 {
		writeURL = fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s", url, db, flagBucket)
	}

	client := &http.Client{Timeout: time.Duration(flagTimeout * float64(time.Second))}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		q, err := toLineProtocol(line, base, fixedBase)
		if err != nil {
			logrus.WithError(err).Error("ndj2influx: skipping malformed line")
			continue
		}
		if q == "" {
			continue
		}
		if flagVerbose {
			fmt.Println(q)
		}
		if err := writeLine(client, writeURL, auth, q); err != nil {
			logrus.WithError(err).Fatal("ndj2influx: write error")
		}
	}
	return scanner.Err()
}

// toLineProtocol converts one ndjson line into an InfluxDB line-protocol
// string "<base> <k=v,...> <timestamp_ns>", returning "" when the line
// carries no numeric field to forward.
func toLineProtocol(line, base, fixedBase string) (string, error) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return "", fmt.Errorf("parsing json: %w", err)
	}

	ts, err := parseTimestamp(m, flagTimeCol)
	if err != nil {
		return "", err
	}

	fields, err := parseMetrics(m, base)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "", nil
	}

	b := fixedBase
	if b == "" {
		v, ok := m[base]
		if !ok {
			return "", fmt.Errorf("base column not found: %s", base)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("base column %s is not a string", base)
		}
		b = s
	}

	return fmt.Sprintf("%s %s %d", b, fields, ts), nil
}

// parseTimestamp returns a Unix nanosecond timestamp: wall-clock now when
// time-col is "@", otherwise the named column parsed as seconds.fraction
// or RFC3339.
func parseTimestamp(m map[string]interface{}, col string) (int64, error) {
	if col == "@" {
		return time.Now().UnixNano(), nil
	}
	v, ok := m[col]
	if !ok {
		return 0, fmt.Errorf("time column not found: %s", col)
	}
	switch t := v.(type) {
	case float64:
		return int64(t * 1e9), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return 0, fmt.Errorf("time %q is not RFC3339: %w", t, err)
		}
		return parsed.UnixNano(), nil
	default:
		return 0, fmt.Errorf("time column %s is in the wrong format: %v", col, v)
	}
}

// lineFields is a comma-joined "k=v" field list, built deterministically
// (sorted by key) so the same input always yields the same line.
type lineFields string

// parseMetrics builds the field list either by scanning every column
// except time-col/base-col for numeric values (K=V mode), or by reading a
// single metric-col/value-col pair.
func parseMetrics(m map[string]interface{}, base string) (lineFields, error) {
	data := map[string]float64{}
	if flagMetric == "" {
		for k, v := range m {
			if k == flagTimeCol || (base != "" && k == base) {
				continue
			}
			if n, ok := numeric(v); ok {
				data[k] = n
			}
		}
	} else {
		metricVal, ok := m[flagMetric]
		if !ok {
			return "", fmt.Errorf("metric col not found: %s", flagMetric)
		}
		metric, ok := metricVal.(string)
		if !ok {
			return "", fmt.Errorf("metric ID in wrong format: %v", metricVal)
		}
		valueVal, ok := m[flagValueCol]
		if !ok {
			return "", fmt.Errorf("value col not found: %s", flagValueCol)
		}
		if n, ok := numeric(valueVal); ok {
			data[metric] = n
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%v", k, data[k])
	}
	return lineFields(b.String()), nil
}

func numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	default:
		if flagVerbose {
			logrus.Debugf("ndj2influx: skipping non-numeric value %v", v)
		}
		return 0, false
	}
}

func writeLine(client *http.Client, url, auth, body string) error {
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("influxdb write failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
