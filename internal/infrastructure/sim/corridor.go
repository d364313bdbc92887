package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

type person struct {
	id      string
	route   int
	origin  int
	dest    int
	arrival float64
}

type vehicle struct {
	id       string
	route    int
	typeID   string
	line     string
	pos      float64
	nextStop int
	dwell    float64
	minDwell map[int]float64
	speed    float64
	waiting  float64
	co2      float64
	onboard  []*person
}

// Corridor is a synthetic set of bus routes with Poisson passenger demand.
// Routes are independent straight lines of evenly spaced stops, split into
// one edge per stop-to-stop segment.
type Corridor struct {
	mu     sync.Mutex
	config Config
	rng    *rand.Rand
	closed bool

	now        float64
	routeIndex map[string]int
	stopIndex  map[string][2]int
	stopIDs    []string
	edgeIDs    []string
	queues     map[string][]*person
	persons    map[string]*person
	vehicles   []*vehicle
	byID       map[string]*vehicle
	usedIDs    map[string]bool
	background map[string]int
	nextPerson int
}

// NewCorridor creates a corridor. Call Reset before stepping it.
func NewCorridor(config Config) (*Corridor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c := &Corridor{
		config:     config,
		rng:        rand.New(rand.NewSource(seed)),
		routeIndex: make(map[string]int, len(config.Routes)),
		stopIndex:  make(map[string][2]int),
	}
	for r, id := range config.Routes {
		c.routeIndex[id] = r
		for k := 0; k < config.StopsPerRoute; k++ {
			c.stopIDs = append(c.stopIDs, stopID(id, k))
			c.stopIndex[stopID(id, k)] = [2]int{r, k}
		}
		for k := 0; k < config.StopsPerRoute-1; k++ {
			c.edgeIDs = append(c.edgeIDs, edgeID(id, k))
		}
	}
	c.clear(0)
	return c, nil
}

func stopID(route string, k int) string {
	return fmt.Sprintf("%s.%d", route, k)
}

func edgeID(route string, k int) string {
	return fmt.Sprintf("%s_%d", route, k)
}

func (c *Corridor) clear(now float64) {
	c.now = now
	c.queues = make(map[string][]*person, len(c.stopIDs))
	c.persons = make(map[string]*person)
	c.vehicles = nil
	c.byID = make(map[string]*vehicle)
	c.usedIDs = make(map[string]bool)
	c.background = make(map[string]int, len(c.edgeIDs))
	c.nextPerson = 0
}

// Reset empties the corridor and sets the clock to startTime.
func (c *Corridor) Reset(ctx context.Context, startTime float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domainTransit.ErrConnectionLost
	}
	if startTime >= c.config.EndTime {
		return fmt.Errorf("start time %.0f is past the simulation end %.0f", startTime, c.config.EndTime)
	}
	c.clear(startTime)
	c.refreshBackground()
	return nil
}

// Advance runs ticks one-second steps. Reaching EndTime closes the corridor.
func (c *Corridor) Advance(ctx context.Context, ticks int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.closed {
			return domainTransit.ErrConnectionLost
		}
		if c.now >= c.config.EndTime {
			c.closed = true
			return fmt.Errorf("simulation ended at %.0f: %w", c.now, domainTransit.ErrConnectionLost)
		}
		c.tick()
	}
	return nil
}

// Close shuts the corridor down. Every later call fails with ErrConnectionLost.
func (c *Corridor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Corridor) tick() {
	c.now++
	if int64(c.now)%60 == 0 {
		c.spawnPassengers()
		c.refreshBackground()
	}

	active := c.vehicles[:0]
	for _, v := range c.vehicles {
		if c.moveVehicle(v) {
			active = append(active, v)
		} else {
			delete(c.byID, v.id)
		}
	}
	c.vehicles = active
}

func (c *Corridor) spawnPassengers() {
	n := c.config.StopsPerRoute
	arrivals := poisson(c.rng, ArrivalsPerMinute(c.now)*c.config.DemandScale)
	for i := 0; i < arrivals; i++ {
		r := c.rng.Intn(len(c.config.Routes))
		origin := c.rng.Intn(n - 1)
		p := &person{
			id:      fmt.Sprintf("p%d", c.nextPerson),
			route:   r,
			origin:  origin,
			dest:    origin + 1 + c.rng.Intn(n-1-origin),
			arrival: c.now,
		}
		c.nextPerson++
		sid := stopID(c.config.Routes[r], origin)
		c.queues[sid] = append(c.queues[sid], p)
		c.persons[p.id] = p
	}
}

func (c *Corridor) refreshBackground() {
	for _, e := range c.edgeIDs {
		c.background[e] = poisson(c.rng, c.config.BackgroundTraffic)
	}
}

// moveVehicle advances v by one second and reports whether it is still on
// the network.
func (c *Corridor) moveVehicle(v *vehicle) bool {
	if v.dwell > 0 {
		v.dwell--
		c.idle(v)
		return true
	}
	if v.nextStop >= c.config.StopsPerRoute {
		return false
	}

	target := float64(v.nextStop) * c.config.StopSpacing
	if v.pos >= target {
		c.serveStop(v)
		c.idle(v)
		return true
	}

	edge := edgeID(c.config.Routes[v.route], c.edgeIndex(v.pos))
	speed := c.config.CruiseSpeed / (1 + 0.1*float64(c.background[edge]))
	v.pos = math.Min(v.pos+speed, target)
	v.speed = speed
	v.co2 = c.config.IdleEmission + (c.config.CruiseEmission-c.config.IdleEmission)*speed/c.config.CruiseSpeed
	return true
}

func (c *Corridor) idle(v *vehicle) {
	v.speed = 0
	v.waiting++
	v.co2 = c.config.IdleEmission
}

// serveStop alights and boards passengers at v's next stop and starts the dwell.
func (c *Corridor) serveStop(v *vehicle) {
	k := v.nextStop
	route := c.config.Routes[v.route]

	staying := v.onboard[:0]
	moved := 0
	for _, p := range v.onboard {
		if p.dest == k {
			moved++
			continue
		}
		staying = append(staying, p)
	}
	v.onboard = staying

	if v.line == route {
		sid := stopID(route, k)
		queue := c.queues[sid]
		boarding := c.config.Capacity - len(v.onboard)
		if boarding > len(queue) {
			boarding = len(queue)
		}
		for _, p := range queue[:boarding] {
			v.onboard = append(v.onboard, p)
			delete(c.persons, p.id)
		}
		c.queues[sid] = queue[boarding:]
		moved += boarding
	}

	dwell := math.Max(c.config.MinDwell, float64(moved)*c.config.BoardingTime)
	if requested, ok := v.minDwell[k]; ok {
		dwell = math.Max(dwell, requested)
	}
	v.dwell = dwell
	v.nextStop++
}

func (c *Corridor) edgeIndex(pos float64) int {
	k := int(pos / c.config.StopSpacing)
	if k > c.config.StopsPerRoute-2 {
		k = c.config.StopsPerRoute - 2
	}
	return k
}

// poisson draws from Poisson(lambda) by multiplying uniforms.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

// ============================================================================
// Queries
// ============================================================================

// Time returns the current simulated second.
func (c *Corridor) Time() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, domainTransit.ErrConnectionLost
	}
	return c.now, nil
}

// StopIDs returns every stop, route by route.
func (c *Corridor) StopIDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domainTransit.ErrConnectionLost
	}
	return append([]string(nil), c.stopIDs...), nil
}

func (c *Corridor) queue(id string) ([]*person, error) {
	if c.closed {
		return nil, domainTransit.ErrConnectionLost
	}
	if _, _, ok := c.parseStop(id); !ok {
		return nil, fmt.Errorf("%w: %s", domainTransit.ErrUnknownStop, id)
	}
	return c.queues[id], nil
}

// StopPersonCount returns the number of persons waiting at a stop.
func (c *Corridor) StopPersonCount(id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, err := c.queue(id)
	return len(q), err
}

// StopPersonIDs returns the persons waiting at a stop in arrival order.
func (c *Corridor) StopPersonIDs(id string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, err := c.queue(id)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(q))
	for i, p := range q {
		ids[i] = p.id
	}
	return ids, nil
}

// StopVehicleIDs returns the vehicles currently dwelling at a stop.
func (c *Corridor) StopVehicleIDs(id string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domainTransit.ErrConnectionLost
	}
	r, k, ok := c.parseStop(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainTransit.ErrUnknownStop, id)
	}
	var ids []string
	for _, v := range c.vehicles {
		if v.route == r && v.dwell > 0 && v.nextStop-1 == k {
			ids = append(ids, v.id)
		}
	}
	return ids, nil
}

// PersonWaitingTime returns how long a waiting person has been at their stop.
func (c *Corridor) PersonWaitingTime(id string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, domainTransit.ErrConnectionLost
	}
	p, ok := c.persons[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domainTransit.ErrUnknownPerson, id)
	}
	return c.now - p.arrival, nil
}

// VehicleIDs returns active vehicles in insertion order.
func (c *Corridor) VehicleIDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domainTransit.ErrConnectionLost
	}
	ids := make([]string, len(c.vehicles))
	for i, v := range c.vehicles {
		ids[i] = v.id
	}
	return ids, nil
}

func (c *Corridor) vehicle(id string) (*vehicle, error) {
	if c.closed {
		return nil, domainTransit.ErrConnectionLost
	}
	v, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainTransit.ErrUnknownVehicle, id)
	}
	return v, nil
}

// VehicleLoad returns the number of passengers on board.
func (c *Corridor) VehicleLoad(id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return 0, err
	}
	return len(v.onboard), nil
}

// VehicleSpeed returns the speed over the last second in m/s.
func (c *Corridor) VehicleSpeed(id string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.speed, nil
}

// VehicleLanePosition returns the distance driven along the current edge.
func (c *Corridor) VehicleLanePosition(id string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.pos - float64(c.edgeIndex(v.pos))*c.config.StopSpacing, nil
}

// VehicleAccumulatedWaiting returns the seconds the vehicle spent stopped.
func (c *Corridor) VehicleAccumulatedWaiting(id string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.waiting, nil
}

// VehicleCO2Emission returns the CO2 emission rate over the last second in mg/s.
func (c *Corridor) VehicleCO2Emission(id string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.co2, nil
}

func (c *Corridor) remainingStops(v *vehicle) []string {
	route := c.config.Routes[v.route]
	stops := make([]string, 0, c.config.StopsPerRoute-v.nextStop)
	for k := v.nextStop; k < c.config.StopsPerRoute; k++ {
		stops = append(stops, stopID(route, k))
	}
	return stops
}

// VehicleNextStops returns the stops the vehicle has yet to serve.
func (c *Corridor) VehicleNextStops(id string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return nil, err
	}
	stops := c.remainingStops(v)
	if len(stops) == 0 {
		return nil, fmt.Errorf("%w: %s", domainTransit.ErrNoUpcomingStop, id)
	}
	return stops, nil
}

// EdgeIDs returns every edge, route by route.
func (c *Corridor) EdgeIDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domainTransit.ErrConnectionLost
	}
	return append([]string(nil), c.edgeIDs...), nil
}

// EdgeVehicleCount returns the buses and background vehicles on an edge.
func (c *Corridor) EdgeVehicleCount(id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, domainTransit.ErrConnectionLost
	}
	background, ok := c.background[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domainTransit.ErrUnknownEdge, id)
	}
	count := background
	for _, v := range c.vehicles {
		if v.nextStop < c.config.StopsPerRoute && edgeID(c.config.Routes[v.route], c.edgeIndex(v.pos)) == id {
			count++
		}
	}
	return count, nil
}

// ============================================================================
// Commands
// ============================================================================

// AddVehicle inserts a vehicle at the first stop of a route. Ids may not be
// reused within an episode.
func (c *Corridor) AddVehicle(id, routeID, typeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domainTransit.ErrConnectionLost
	}
	r, ok := c.routeIndex[routeID]
	if !ok {
		return fmt.Errorf("%w: %s", domainTransit.ErrUnknownRoute, routeID)
	}
	if c.usedIDs[id] {
		return fmt.Errorf("%w: %s", domainTransit.ErrDuplicateVehicle, id)
	}

	v := &vehicle{
		id:       id,
		route:    r,
		typeID:   typeID,
		minDwell: make(map[int]float64),
	}
	c.vehicles = append(c.vehicles, v)
	c.byID[id] = v
	c.usedIDs[id] = true
	return nil
}

// SetLine sets the line passengers wait for. Only vehicles whose line equals
// their route pick anyone up.
func (c *Corridor) SetLine(id, line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return err
	}
	v.line = line
	return nil
}

// VehicleStops returns the stops the vehicle has yet to serve.
func (c *Corridor) VehicleStops(id string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return nil, err
	}
	return c.remainingStops(v), nil
}

// SetBusStop sets the minimum dwell at one of the vehicle's upcoming stops.
func (c *Corridor) SetBusStop(id, stop string, duration float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.vehicle(id)
	if err != nil {
		return err
	}
	r, k, ok := c.parseStop(stop)
	if !ok || r != v.route || k < v.nextStop {
		return fmt.Errorf("%w: %s is not ahead of %s", domainTransit.ErrUnknownStop, stop, id)
	}
	if duration < 0 {
		return fmt.Errorf("negative dwell %.1f for %s", duration, id)
	}
	v.minDwell[k] = duration
	return nil
}

// parseStop resolves "route.k" into route and stop indices.
func (c *Corridor) parseStop(id string) (int, int, bool) {
	idx, ok := c.stopIndex[id]
	return idx[0], idx[1], ok
}

var _ domainTransit.Simulator = (*Corridor)(nil)
