package bookings_service_api

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

const ServiceName = "tourbooking.BookingsService"

// BookingsServiceServer is the gRPC surface. Every message is a
// google.protobuf.Struct carrying the same fields as the HTTP API.
type BookingsServiceServer interface {
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCalendarBlocks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CheckAvailability", BookingsServiceServer.CheckAvailability),
		unary("GetAvailableSlots", BookingsServiceServer.GetAvailableSlots),
		unary("CreateBooking", BookingsServiceServer.CreateBooking),
		unary("CancelBooking", BookingsServiceServer.CancelBooking),
		unary("GetCalendarBlocks", BookingsServiceServer.GetCalendarBlocks),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterBookingsServiceServer(r grpc.ServiceRegistrar, srv BookingsServiceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

func unary(name string, call func(BookingsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingsServiceServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type Server struct {
	bookings     booking.BookingUseCase
	availability vehicles.AvailabilityUseCase
	logger       *zap.Logger
}

func NewServer(bookings booking.BookingUseCase, availability vehicles.AvailabilityUseCase, logger *zap.Logger) *Server {
	return &Server{bookings: bookings, availability: availability, logger: logger}
}

func (s *Server) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{req}
	date, err := r.date("date")
	if err != nil {
		return nil, toStatus(err)
	}
	start, err := r.clock("start_time")
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := s.availability.CheckAvailability(ctx, vehicles.CheckInput{
		Date:          date,
		StartTime:     start,
		DurationHours: r.number("duration_hours"),
		PartySize:     int(r.number("party_size")),
		ScopeID:       r.optionalID("scope_id"),
	})
	if err != nil {
		return nil, s.fail("CheckAvailability", err)
	}
	return structpb.NewStruct(availabilityFields(result))
}

func (s *Server) GetAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{req}
	date, err := r.date("date")
	if err != nil {
		return nil, toStatus(err)
	}

	slots, err := s.availability.GetAvailableSlots(ctx, vehicles.SlotsInput{
		Date:          date,
		DurationHours: r.number("duration_hours"),
		PartySize:     int(r.number("party_size")),
		ScopeID:       r.optionalID("scope_id"),
	})
	if err != nil {
		return nil, s.fail("GetAvailableSlots", err)
	}
	list := make([]any, 0, len(slots))
	for _, slot := range slots {
		fields := map[string]any{
			"start_time": slot.StartTime.String(),
			"end_time":   slot.EndTime.String(),
			"available":  slot.Available,
		}
		if slot.VehicleID != nil {
			fields["vehicle_id"] = *slot.VehicleID
			fields["vehicle_name"] = slot.VehicleName
			fields["vehicle_capacity"] = slot.VehicleCapacity
		}
		list = append(list, fields)
	}
	return structpb.NewStruct(map[string]any{"date": date.Format(domain.DateLayout), "slots": list})
}

func (s *Server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{req}
	date, err := r.date("tour_date")
	if err != nil {
		return nil, toStatus(err)
	}
	start, err := r.clock("start_time")
	if err != nil {
		return nil, toStatus(err)
	}
	customer := reader{req.GetFields()["customer"].GetStructValue()}

	created, err := s.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		Customer: booking.CustomerInput{
			Email: customer.str("email"),
			Name:  customer.str("name"),
			Phone: customer.str("phone"),
		},
		Tour: booking.TourDetails{
			Date:          date,
			StartTime:     start,
			DurationHours: r.number("duration_hours"),
			PartySize:     int(r.number("party_size")),
			ScopeID:       r.optionalID("scope_id"),
			VehicleID:     r.optionalID("vehicle_id"),
			Notes:         r.str("notes"),
		},
		Mode: domain.BookingMode(r.str("mode")),
	})
	if err != nil {
		return nil, s.fail("CreateBooking", err)
	}
	return structpb.NewStruct(bookingFields(created))
}

func (s *Server) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{req}
	id := int64(r.number("id"))
	if id <= 0 {
		return nil, toStatus(domain.NewValidationError("id", "invalid booking id"))
	}

	cancelled, err := s.bookings.CancelBooking(ctx, id, r.str("reason"))
	if err != nil {
		return nil, s.fail("CancelBooking", err)
	}
	return structpb.NewStruct(bookingFields(cancelled))
}

func (s *Server) GetCalendarBlocks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{req}
	from, err := r.date("start_date")
	if err != nil {
		return nil, toStatus(err)
	}
	to, err := r.date("end_date")
	if err != nil {
		return nil, toStatus(err)
	}

	blocks, err := s.availability.GetBlocksInRange(ctx, from, to, r.optionalID("vehicle_id"))
	if err != nil {
		return nil, s.fail("GetCalendarBlocks", err)
	}
	list := make([]any, 0, len(blocks))
	for _, b := range blocks {
		fields := map[string]any{
			"id":           b.ID,
			"vehicle_id":   b.VehicleID,
			"vehicle_name": b.VehicleName,
			"date":         b.Date.Format(domain.DateLayout),
			"start_time":   b.StartTime.String(),
			"end_time":     b.EndTime.String(),
			"block_type":   string(b.Type),
		}
		if b.BookingID != nil {
			fields["booking_id"] = *b.BookingID
		}
		list = append(list, fields)
	}
	return structpb.NewStruct(map[string]any{"blocks": list})
}

func (s *Server) fail(method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error("grpc call failed", zap.String("method", method), zap.Error(err))
	}
	return st
}

// toStatus maps domain errors onto gRPC codes. Conflict reasons travel as
// PreconditionFailure violations, validation failures as BadRequest.
func toStatus(err error) error {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		st := status.New(codes.InvalidArgument, validation.Error())
		detailed, derr := st.WithDetails(&errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: validation.Field, Description: validation.Message}},
		})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.As(err, &conflict):
		st := status.New(codes.FailedPrecondition, conflict.Error())
		violations := make([]*errdetails.PreconditionFailure_Violation, 0, len(conflict.Reasons))
		for _, reason := range conflict.Reasons {
			violations = append(violations, &errdetails.PreconditionFailure_Violation{Type: "AVAILABILITY", Description: reason})
		}
		detailed, derr := st.WithDetails(&errdetails.PreconditionFailure{Violations: violations})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.As(err, &notFound):
		return status.Error(codes.NotFound, notFound.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func availabilityFields(a *domain.Availability) map[string]any {
	fields := map[string]any{"available": a.Available}
	if a.VehicleID != nil {
		fields["vehicle_id"] = *a.VehicleID
		fields["vehicle_name"] = a.VehicleName
		fields["vehicle_capacity"] = a.VehicleCapacity
	}
	if len(a.Conflicts) > 0 {
		conflicts := make([]any, 0, len(a.Conflicts))
		for _, c := range a.Conflicts {
			conflicts = append(conflicts, c)
		}
		fields["conflicts"] = conflicts
	}
	return fields
}

func bookingFields(b *domain.Booking) map[string]any {
	fields := map[string]any{
		"id":             b.ID,
		"booking_number": b.BookingNumber,
		"status":         string(b.Status),
		"mode":           string(b.Mode),
		"tour_date":      b.TourDate.Format(domain.DateLayout),
		"start_time":     b.StartTime.String(),
		"end_time":       b.EndTime.String(),
		"duration_hours": b.DurationHours,
		"party_size":     b.PartySize,
		"total_cents":    b.Price.Total,
		"deposit_cents":  b.Price.Deposit,
	}
	if b.VehicleID != nil {
		fields["vehicle_id"] = *b.VehicleID
	}
	if b.CancellationReason != "" {
		fields["cancellation_reason"] = b.CancellationReason
	}
	return fields
}

// reader pulls typed fields out of a Struct; missing fields read as zero.
type reader struct {
	s *structpb.Struct
}

func (r reader) value(key string) *structpb.Value {
	return r.s.GetFields()[key]
}

func (r reader) str(key string) string {
	return r.value(key).GetStringValue()
}

func (r reader) number(key string) float64 {
	return r.value(key).GetNumberValue()
}

func (r reader) optionalID(key string) *int64 {
	if _, ok := r.value(key).GetKind().(*structpb.Value_NumberValue); !ok {
		return nil
	}
	id := int64(r.number(key))
	return &id
}

func (r reader) date(key string) (date time.Time, err error) {
	date, err = domain.ParseDate(r.str(key))
	if err != nil {
		return date, domain.NewValidationError(key, "expected YYYY-MM-DD")
	}
	return date, nil
}

func (r reader) clock(key string) (domain.ClockTime, error) {
	t, err := domain.ParseClockTime(r.str(key))
	if err != nil {
		return 0, domain.NewValidationError(key, "expected HH:MM")
	}
	return t, nil
}

var _ BookingsServiceServer = (*Server)(nil)
