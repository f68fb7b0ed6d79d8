// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ingress wraps the three OTLP/gRPC Export services
// (plogotlp/pmetricotlp/ptraceotlp) into a single Acceptor contract a
// pipeline receiver node can implement (spec §4.4's receiver role),
// grounded on the teacher's otelarrowreceiver/internal/{logs,metrics,trace}
// Receiver types and collector/gen/receiver/otlpreceiver's registration
// pattern. Every inbound Export request is converted to OTAP's columnar
// form via pkg/otapcodec before being handed to the Acceptor, so C2 (the
// codec) sits directly on the pipeline's network ingress path rather than
// floating unused.
package ingress

import (
	"context"

	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"
	"google.golang.org/grpc"

	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// Acceptor is what a receiver node offers ingress to: a single entry
// point that takes ownership of one signal's worth of OTAP-encoded data
// and reports whether the pipeline accepted it. Implementations
// typically Subscribe against the pipeline's ack fabric and Await the
// outcome before returning, so an Export RPC's success/failure reflects
// real downstream delivery rather than just "was it queued" (spec §4.6).
type Acceptor interface {
	Push(ctx context.Context, signal pdata.SignalType, payload pdata.Payload, numItems int64) error
}

// Register wires acc's Export handlers onto s for all three signals,
// the Go equivalent of the teacher's
// ptraceotlp.RegisterGRPCServer(r.serverGRPC, r.tracesReceiver) /
// pmetricotlp.../ plogotlp... triplet.
func Register(s *grpc.Server, acc Acceptor) {
	ptraceotlp.RegisterGRPCServer(s, &tracesServer{acc: acc})
	pmetricotlp.RegisterGRPCServer(s, &metricsServer{acc: acc})
	plogotlp.RegisterGRPCServer(s, &logsServer{acc: acc})
}

type logsServer struct {
	plogotlp.UnimplementedGRPCServer
	acc Acceptor
}

func (s *logsServer) Export(ctx context.Context, req plogotlp.ExportRequest) (plogotlp.ExportResponse, error) {
	ld := req.Logs()
	rs, err := otapcodec.EncodeLogs(ld)
	if err != nil {
		return plogotlp.NewExportResponse(), err
	}
	payload := pdata.NewOtapPayload(pdata.RecordSet(rs))
	err = s.acc.Push(ctx, pdata.SignalLogs, payload, int64(ld.LogRecordCount()))
	return plogotlp.NewExportResponse(), err
}

type metricsServer struct {
	pmetricotlp.UnimplementedGRPCServer
	acc Acceptor
}

func (s *metricsServer) Export(ctx context.Context, req pmetricotlp.ExportRequest) (pmetricotlp.ExportResponse, error) {
	md := req.Metrics()
	rs, err := otapcodec.EncodeMetrics(md)
	if err != nil {
		return pmetricotlp.NewExportResponse(), err
	}
	payload := pdata.NewOtapPayload(pdata.RecordSet(rs))
	err = s.acc.Push(ctx, pdata.SignalMetrics, payload, int64(md.DataPointCount()))
	return pmetricotlp.NewExportResponse(), err
}

type tracesServer struct {
	ptraceotlp.UnimplementedGRPCServer
	acc Acceptor
}

func (s *tracesServer) Export(ctx context.Context, req ptraceotlp.ExportRequest) (ptraceotlp.ExportResponse, error) {
	td := req.Traces()
	rs, err := otapcodec.EncodeTraces(td)
	if err != nil {
		return ptraceotlp.NewExportResponse(), err
	}
	payload := pdata.NewOtapPayload(pdata.RecordSet(rs))
	err = s.acc.Push(ctx, pdata.SignalTraces, payload, int64(td.SpanCount()))
	return ptraceotlp.NewExportResponse(), err
}
